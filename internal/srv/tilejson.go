package srv

import (
	"net/url"

	"github.com/nyurik/martin-go/internal/martinerr"
	"github.com/nyurik/martin-go/internal/tiles"
)

// parseXRewriteURL extracts the path component of an X-Rewrite-Url header
// value, matching parse_x_rewrite_url. A header that doesn't parse as a URI
// is ignored rather than rejected, so a malformed header just falls back to
// the request's own path.
func parseXRewriteURL(header string) (string, bool) {
	u, err := url.Parse(header)
	if err != nil {
		return "", false
	}
	return u.Path, true
}

// tilesURLFor builds the absolute "tiles" URL template a TileJSON response
// advertises, matching get_tiles_url.
func tilesURLFor(scheme, host, rawQuery, tilesPath string) (string, error) {
	u := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   tilesPath,
	}
	if host == "" {
		return "", martinerr.BadRequest("can't build tiles URL: missing host")
	}
	tilesURL := u.String() + "/{z}/{x}/{y}"
	if rawQuery != "" {
		tilesURL += "?" + rawQuery
	}
	return tilesURL, nil
}

// mergeTileJSON combines every source's TileJSON into one, taking the
// widest min/max zoom and the union of bounds, matching merge_tilejson.
func mergeTileJSON(srcs []tiles.Source, tilesURL string) tiles.TileJSON {
	var accum tiles.TileJSON
	for i, src := range srcs {
		tj := src.TileJSON()
		if i == 0 {
			accum = tj
			accum.Tiles = nil
			continue
		}
		if tj.MinZoom != nil && (accum.MinZoom == nil || *accum.MinZoom > *tj.MinZoom) {
			accum.MinZoom = tj.MinZoom
		}
		if tj.MaxZoom != nil && (accum.MaxZoom == nil || *accum.MaxZoom < *tj.MaxZoom) {
			accum.MaxZoom = tj.MaxZoom
		}
		accum.Bounds = unionBounds(accum.Bounds, tj.Bounds)
	}
	accum.Tiles = []string{tilesURL}
	return accum
}

// unionBounds returns the smallest bounding box containing both a and b,
// matching the tilejson crate's Bounds addition used by merge_tilejson.
func unionBounds(a, b []float64) []float64 {
	switch {
	case len(a) != 4:
		return b
	case len(b) != 4:
		return a
	}
	return []float64{
		min(a[0], b[0]),
		min(a[1], b[1]),
		max(a[2], b[2]),
		max(a[3], b[3]),
	}
}
