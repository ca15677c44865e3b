package tiles

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nyurik/martin-go/internal/encoding"
	"github.com/nyurik/martin-go/internal/martinerr"
	"github.com/nyurik/martin-go/internal/tilecoord"
)

// ResolveSources splits a comma-separated source-ID list, looks each one up
// in reg, and verifies every resolved source shares one tilecoord.Info — the
// precondition for ever merging their tiles, matching get_sources. When zoom
// is non-nil, sources for which IsValidZoom(zoom) is false are dropped
// rather than rejected, so "a,b" still resolves at a zoom only a covers.
func ResolveSources(reg Registry, sourceIDs string, zoom *uint8) ([]Source, bool, tilecoord.Info, error) {
	var resolved []Source
	var info tilecoord.Info
	haveInfo := false
	useURLQuery := false

	for _, id := range strings.Split(sourceIDs, ",") {
		src, ok := reg.Get(id)
		if !ok {
			return nil, false, tilecoord.Info{}, martinerr.NotFound("source %q does not exist", id)
		}
		srcInfo := src.TileInfo()
		useURLQuery = useURLQuery || src.SupportsURLQuery()

		if !haveInfo {
			info = srcInfo
			haveInfo = true
		} else if info != srcInfo {
			return nil, false, tilecoord.Info{}, martinerr.NotFound(
				"cannot merge sources with %s with %s", info, srcInfo)
		}

		if zoom == nil || src.IsValidZoom(*zoom) {
			resolved = append(resolved, src)
		}
	}

	return resolved, useURLQuery, info, nil
}

// Composer fetches and merges tiles from a resolved set of sources for a
// single request.
type Composer struct {
	Sources      []Source
	Info         tilecoord.Info
	Query        map[string]string
	AcceptEnc    string
	HasAcceptEnc bool
	Preferred    encoding.Preferred
}

// GetTileContent fetches every source's tile at coord in parallel (first
// error cancels the rest, the errgroup analog of try_join_all), merges them,
// and (re-)compresses the result for the client, mirroring
// DynTileSource::get_tile_content / recompress exactly. Callers that want to
// cache the pre-recompression payload (spec.md §4.7: "stored post-fetch,
// pre-recompression") should call FetchAndMerge and Recompress separately.
func (c *Composer) GetTileContent(ctx context.Context, coord tilecoord.Coord) (tilecoord.Tile, error) {
	merged, err := c.FetchAndMerge(ctx, coord)
	if err != nil {
		return tilecoord.Tile{}, err
	}
	return c.Recompress(merged)
}

// FetchAndMerge fetches every source's tile at coord in parallel (first
// error cancels the rest, the errgroup analog of try_join_all) and merges
// them, without any client-specific recompression. This is the cacheable
// half of GetTileContent.
func (c *Composer) FetchAndMerge(ctx context.Context, coord tilecoord.Coord) (tilecoord.Tile, error) {
	if len(c.Sources) == 0 {
		return tilecoord.Tile{}, martinerr.NotFound("no valid sources found")
	}

	fetched := make([]tilecoord.Tile, len(c.Sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range c.Sources {
		i, src := i, src
		g.Go(func() error {
			tile, err := src.GetTile(gctx, coord, c.Query)
			if err != nil {
				return err
			}
			fetched[i] = tile
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return tilecoord.Tile{}, err
	}

	return mergeTiles(fetched, c.Info, coord)
}

// mergeTiles applies the 0/1/N-tile fast paths: no non-empty tile produces
// an empty result, exactly one non-empty tile is passed through unchanged,
// and two or more are concatenated only when the format/encoding combination
// is known to support raw concatenation (Mvt + Uncompressed|Gzip).
func mergeTiles(fetched []tilecoord.Tile, info tilecoord.Info, coord tilecoord.Coord) (tilecoord.Tile, error) {
	nonEmptyCount := 0
	lastNonEmpty := 0
	for i, t := range fetched {
		if !t.Empty() {
			nonEmptyCount++
			lastNonEmpty = i
		}
	}

	switch nonEmptyCount {
	case 0:
		return tilecoord.New(nil, info), nil
	case 1:
		return fetched[lastNonEmpty], nil
	default:
		canJoin := info.Format == tilecoord.FormatMvt &&
			(info.Encoding == tilecoord.EncodingUncompressed || info.Encoding == tilecoord.EncodingGzip)
		if !canJoin {
			return tilecoord.Tile{}, martinerr.BadRequest(
				"can't merge %s tiles; make sure there is only one non-empty tile source at zoom level %d",
				info, coord.Z)
		}
		var data []byte
		for _, t := range fetched {
			data = append(data, t.Data...)
		}
		return tilecoord.New(data, info), nil
	}
}

// Recompress mirrors DynTileSource::recompress: if the client sent no
// Accept-Encoding, always hand back an uncompressed tile; otherwise
// re-encode into whichever codec negotiate() picks, decoding first if the
// stored encoding isn't one the client accepts as-is.
func (c *Composer) Recompress(tile tilecoord.Tile) (tilecoord.Tile, error) {
	if !c.HasAcceptEnc {
		return encoding.Decode(tile)
	}

	if tile.Info.Encoding.IsEncoded() && !clientAccepts(c.AcceptEnc, tile.Info.Encoding) {
		decoded, err := encoding.Decode(tile)
		if err != nil {
			return tilecoord.Tile{}, err
		}
		tile = decoded
	}

	if tile.Info.Encoding == tilecoord.EncodingUncompressed {
		if enc, ok := encoding.Negotiate(c.AcceptEnc, c.Preferred); ok && enc != tilecoord.EncodingUncompressed {
			return encoding.Encode(tile, enc)
		}
	}
	return tile, nil
}

// clientAccepts reports whether enc appears, with non-zero quality, among
// the client's Accept-Encoding tokens — used only to decide whether an
// already-compressed tile can be served as-is.
func clientAccepts(acceptEncHeader string, enc tilecoord.Encoding) bool {
	want := enc.ContentEncoding()
	for _, part := range strings.Split(acceptEncHeader, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		coding := part
		if i := strings.Index(part, ";"); i >= 0 {
			coding = strings.TrimSpace(part[:i])
			if qValue(part[i+1:]) == 0 {
				continue
			}
		}
		if strings.EqualFold(coding, want) {
			return true
		}
	}
	return false
}

// qValue extracts the q=<value> parameter from the parameter portion of an
// Accept-Encoding token (everything after the first ";"), defaulting to 1
// when absent or unparseable so a bare coding is treated as fully accepted.
func qValue(params string) float64 {
	for _, param := range strings.Split(params, ";") {
		param = strings.TrimSpace(param)
		v, ok := strings.CutPrefix(param, "q=")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 1
		}
		return f
	}
	return 1
}

// ParseTileQuery decodes a raw query string into the key/value map a Source
// with SupportsURLQuery may consume, matching UrlQuery::from_query's plain
// form-encoded contract.
func ParseTileQuery(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, martinerr.BadRequest("invalid query string: %v", err)
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out, nil
}
