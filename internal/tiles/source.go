// Package tiles resolves comma-separated source ID lists into tile sources,
// fetches each one in parallel, and merges the results into a single
// response tile, ported from the original srv/tiles.rs DynTileSource and
// the source-resolution half of srv/server.rs's AppState::get_sources.
package tiles

import (
	"context"

	"github.com/nyurik/martin-go/internal/tilecoord"
)

// TileJSON is the subset of the TileJSON spec this server produces and
// merges across composed sources (spec.md §6).
type TileJSON struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Attribution string   `json:"attribution,omitempty"`
	MinZoom     *uint8   `json:"minzoom,omitempty"`
	MaxZoom     *uint8   `json:"maxzoom,omitempty"`
	Bounds      []float64 `json:"bounds,omitempty"`
	Tiles       []string `json:"tiles"`
}

// Source is the capability interface every tile-producing backend
// implements, whether PostGIS-backed or otherwise. It plays the same
// boundary role here that gotypst.World/gotypst.Font play for the teacher.
type Source interface {
	ID() string
	TileInfo() tilecoord.Info
	TileJSON() TileJSON
	SupportsURLQuery() bool
	IsValidZoom(zoom uint8) bool
	GetTile(ctx context.Context, coord tilecoord.Coord, query map[string]string) (tilecoord.Tile, error)
}

// Registry looks up registered sources by ID, matching Sources in the
// original implementation.
type Registry interface {
	Get(id string) (Source, bool)
	All() map[string]Source
}

// MapRegistry is the simplest Registry: a static map populated at startup.
type MapRegistry map[string]Source

func (m MapRegistry) Get(id string) (Source, bool) {
	s, ok := m[id]
	return s, ok
}

func (m MapRegistry) All() map[string]Source {
	return m
}
