// Package srv wires the tile and glyph composers into an HTTP surface:
// catalog/health/index endpoints, tile requests, and font-range requests,
// ported from src/srv/server.rs and martin/src/srv/tiles.rs.
package srv

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/logger"
	"github.com/julienschmidt/httprouter"

	"github.com/nyurik/martin-go/internal/encoding"
	"github.com/nyurik/martin-go/internal/fontcatalog"
	"github.com/nyurik/martin-go/internal/glyphs"
	"github.com/nyurik/martin-go/internal/martinerr"
	"github.com/nyurik/martin-go/internal/tilecache"
	"github.com/nyurik/martin-go/internal/tilecoord"
	"github.com/nyurik/martin-go/internal/tiles"
)

var errCachedTileTooShort = errors.New("cached tile value shorter than its header")

// reservedKeywords must never be used as a source ID, matching
// src/srv/server.rs's RESERVED_KEYWORDS. Reserved keywords must never end in
// a "dot number" (e.g. ".1").
var reservedKeywords = map[string]bool{
	"catalog": true, "config": true, "health": true, "help": true,
	"index": true, "manifest": true, "refresh": true, "reload": true, "status": true,
}

// Config bundles everything the HTTP surface needs; populated by whatever
// loads the server's configuration upstream of this package (spec.md §1 —
// config loading itself is out of scope).
type Config struct {
	Sources           tiles.Registry
	Fonts             *fontcatalog.Catalog
	FaceLoader        glyphs.FaceLoader
	TileCache         *tilecache.Cache
	GlyphCache        *tilecache.Cache
	PreferredEncoding encoding.Preferred
	MaxFeatureCount   int
}

// NewRouter builds the httprouter.Router exposing every endpoint spec.md §6
// names.
func NewRouter(cfg Config) *httprouter.Router {
	r := httprouter.New()
	r.GET("/", handleIndex)
	r.HEAD("/", handleIndex)
	r.GET("/health", handleHealth)
	r.HEAD("/health", handleHealth)
	r.GET("/catalog", handleCatalog(cfg))
	r.GET("/font/:ids/:range", handleFontRange(cfg))
	r.GET("/:source_ids/:z/:x/:y", handleTile(cfg))
	r.GET("/:source_ids", handleTileJSON(cfg))
	return r
}

func handleIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("martin-go server is running.\n\nA list of all available sources is at /catalog\n"))
}

func handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// IndexEntry is one row of the /catalog listing, matching
// src/srv/server.rs's IndexEntry shape (spec.md §6).
type IndexEntry struct {
	ID              string `json:"id"`
	ContentType     string `json:"content_type"`
	ContentEncoding string `json:"content_encoding,omitempty"`
	Name            string `json:"name,omitempty"`
	Description     string `json:"description,omitempty"`
	Attribution     string `json:"attribution,omitempty"`
}

func handleCatalog(cfg Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var entries []IndexEntry
		for id, src := range cfg.Sources.All() {
			tj := src.TileJSON()
			info := src.TileInfo()
			e := IndexEntry{
				ID:              id,
				ContentType:     info.Format.ContentType(),
				ContentEncoding: info.Encoding.ContentEncoding(),
				Description:     tj.Description,
				Attribution:     tj.Attribution,
			}
			if tj.Name != id {
				e.Name = tj.Name
			}
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].ID != entries[j].ID {
				return entries[i].ID < entries[j].ID
			}
			return entries[i].Name < entries[j].Name
		})
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleTileJSON(cfg Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sourceIDs := ps.ByName("source_ids")
		if err := checkSourceIDs(sourceIDs); err != nil {
			writeError(w, err)
			return
		}

		srcs, _, _, err := tiles.ResolveSources(cfg.Sources, sourceIDs, nil)
		if err != nil {
			writeError(w, err)
			return
		}
		if len(srcs) == 0 {
			writeError(w, martinerr.NotFound("no valid sources found"))
			return
		}

		tilesPath := r.URL.Path
		if rewrite := r.Header.Get("X-Rewrite-Url"); rewrite != "" {
			if p, ok := parseXRewriteURL(rewrite); ok {
				tilesPath = p
			}
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		tilesURL, err := tilesURLFor(scheme, r.Host, r.URL.RawQuery, tilesPath)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, mergeTileJSON(srcs, tilesURL))
	}
}

func handleTile(cfg Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sourceIDs := ps.ByName("source_ids")
		if err := checkSourceIDs(sourceIDs); err != nil {
			writeError(w, err)
			return
		}

		z, err := strconv.ParseUint(ps.ByName("z"), 10, 8)
		if err != nil {
			writeError(w, martinerr.BadRequest("invalid z: %v", err))
			return
		}
		x, err := strconv.ParseUint(ps.ByName("x"), 10, 32)
		if err != nil {
			writeError(w, martinerr.BadRequest("invalid x: %v", err))
			return
		}
		y, err := strconv.ParseUint(ps.ByName("y"), 10, 32)
		if err != nil {
			writeError(w, martinerr.BadRequest("invalid y: %v", err))
			return
		}
		zoom := uint8(z)
		coord := tilecoord.Coord{Z: zoom, X: uint32(x), Y: uint32(y)}

		srcs, useURLQuery, info, err := tiles.ResolveSources(cfg.Sources, sourceIDs, &zoom)
		if err != nil {
			writeError(w, err)
			return
		}

		var query map[string]string
		if useURLQuery && r.URL.RawQuery != "" {
			query, err = tiles.ParseTileQuery(r.URL.RawQuery)
			if err != nil {
				writeError(w, err)
				return
			}
		}

		acceptEnc := r.Header.Get("Accept-Encoding")
		comp := &tiles.Composer{
			Sources:      srcs,
			Info:         info,
			Query:        query,
			AcceptEnc:    acceptEnc,
			HasAcceptEnc: r.Header.Get("Accept-Encoding") != "",
			Preferred:    cfg.PreferredEncoding,
		}

		tile, err := cachedGetTile(r, cfg, comp, sourceIDs, coord, r.URL.RawQuery)
		if err != nil {
			writeError(w, err)
			return
		}

		if tile.Empty() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", tile.Info.Format.ContentType())
		if ce := tile.Info.Encoding.ContentEncoding(); ce != "" {
			w.Header().Set("Content-Encoding", ce)
		}
		_, _ = w.Write(tile.Data)
	}
}

// handleFontRange serves a 256-codepoint glyph range as a protobuf
// fontstack, matching src/font_service.rs's /font/{fontstack}/{start}-{end}
// route (spec.md §7).
func handleFontRange(cfg Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ids := ps.ByName("ids")
		start, end, err := parseGlyphRange(ps.ByName("range"))
		if err != nil {
			writeError(w, err)
			return
		}

		key := tilecache.GlyphKey(ids, start, end)
		v, err := cfg.GlyphCache.GetOrCompute(r.Context(), key, func(context.Context) (tilecache.Value, error) {
			data, err := glyphs.GetFontRange(cfg.Fonts, cfg.FaceLoader, ids, start, end)
			if err != nil {
				return tilecache.Value{}, err
			}
			return tilecache.Value{Data: data}, nil
		})
		if err != nil {
			writeError(w, err)
			return
		}

		if len(v.Data) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(v.Data)
	}
}

// parseGlyphRange parses the "{start}-{end}" path segment spec.md §7 names.
func parseGlyphRange(raw string) (uint32, uint32, error) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return 0, 0, martinerr.BadRequest("invalid glyph range %q, expected start-end", raw)
	}
	start, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, martinerr.BadRequest("invalid glyph range start: %v", err)
	}
	end, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, martinerr.BadRequest("invalid glyph range end: %v", err)
	}
	return uint32(start), uint32(end), nil
}

// cachedGetTile stores the merged, pre-recompression tile in cfg.TileCache
// (spec.md §4.7: "stored post-fetch, pre-recompression") so that requests
// for the same tile differing only in Accept-Encoding share one cached
// value; recompression itself always runs per-request, outside the cache.
func cachedGetTile(r *http.Request, cfg Config, comp *tiles.Composer, sourceIDs string, coord tilecoord.Coord, rawQuery string) (tilecoord.Tile, error) {
	key := tilecache.TileKey(sourceIDs, coord)
	if rawQuery != "" {
		key = tilecache.TileWithQueryKey(sourceIDs, coord, rawQuery)
	}

	v, err := cfg.TileCache.GetOrCompute(r.Context(), key, func(ctx context.Context) (tilecache.Value, error) {
		merged, err := comp.FetchAndMerge(ctx, coord)
		if err != nil {
			return tilecache.Value{}, err
		}
		return tilecache.Value{Data: encodeCachedTile(merged)}, nil
	})
	if err != nil {
		return tilecoord.Tile{}, err
	}

	merged, err := decodeCachedTile(v)
	if err != nil {
		return tilecoord.Tile{}, err
	}
	return comp.Recompress(merged)
}

// encodeCachedTile/decodeCachedTile round-trip a tilecoord.Tile through the
// byte-slice-only tilecache.Value: the tile's data is cached alongside its
// own (pre-recompression) Info, since a composer's Info describes the
// merged set's nominal format, not necessarily the cached tile's own
// encoding after a partial-source empty-tile fast path.
func encodeCachedTile(tile tilecoord.Tile) []byte {
	header := []byte{byte(tile.Info.Format), byte(tile.Info.Encoding)}
	return append(header, tile.Data...)
}

func decodeCachedTile(v tilecache.Value) (tilecoord.Tile, error) {
	if len(v.Data) < 2 {
		return tilecoord.Tile{}, martinerr.Internal("cached tile", errCachedTileTooShort)
	}
	info := tilecoord.Info{
		Format:   tilecoord.Format(v.Data[0]),
		Encoding: tilecoord.Encoding(v.Data[1]),
	}
	return tilecoord.New(v.Data[2:], info), nil
}

func checkSourceIDs(sourceIDs string) error {
	for _, id := range strings.Split(sourceIDs, ",") {
		if reservedKeywords[id] {
			return martinerr.BadRequest("%q is a reserved keyword and cannot be used as a source ID", id)
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := martinerr.HTTPStatus(err)
	if status >= 500 {
		logger.Errorf("%v", err)
	}
	http.Error(w, err.Error(), status)
}
