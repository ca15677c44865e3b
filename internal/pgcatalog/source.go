package pgcatalog

import (
	"context"
	"fmt"

	"github.com/nyurik/martin-go/internal/martinerr"
	"github.com/nyurik/martin-go/internal/tilecoord"
	"github.com/nyurik/martin-go/internal/tiles"
)

// DetectTileMargin queries PostGIS_Lib_Version() once to decide whether
// ST_TileEnvelope's margin parameter is supported (PostGIS >= 3.1), matching
// the "detect once at pool init" design note.
func DetectTileMargin(ctx context.Context, pool Pool) (SupportsTileMargin, error) {
	var version string
	row := pool.QueryRow(ctx, "SELECT PostGIS_Lib_Version()")
	if err := row.Scan(&version); err != nil {
		return false, martinerr.Internal("querying PostGIS_Lib_Version", err)
	}
	var major, minor int
	if _, err := fmt.Sscanf(version, "%d.%d", &major, &minor); err != nil {
		return false, nil
	}
	return SupportsTileMargin(major > 3 || (major == 3 && minor >= 1)), nil
}

// TableSource adapts one catalog TableInfo into a tiles.Source, running its
// synthesized ST_AsMVT query against pool for every GetTile call. Mirrors
// table_source.rs's impl Source for PgTable.
type TableSource struct {
	SourceID        string
	Info            TableInfo
	Pool            Pool
	SupportsMargin  SupportsTileMargin
	MaxFeatureCount int

	query string
}

// NewTableSource builds a TableSource, precomputing its query text once
// (spec.md §9's "build query once, reuse per request" note).
func NewTableSource(id string, info TableInfo, pool Pool, supportsMargin SupportsTileMargin, maxFeatureCount int) *TableSource {
	return &TableSource{
		SourceID:        id,
		Info:            info,
		Pool:            pool,
		SupportsMargin:  supportsMargin,
		MaxFeatureCount: maxFeatureCount,
		query:           TableToQuery(id, info, supportsMargin, maxFeatureCount),
	}
}

func (s *TableSource) ID() string { return s.SourceID }

func (s *TableSource) TileInfo() tilecoord.Info {
	return tilecoord.Info{Format: tilecoord.FormatMvt, Encoding: tilecoord.EncodingUncompressed}
}

func (s *TableSource) TileJSON() tiles.TileJSON {
	minZoom := s.Info.MinZoom
	maxZoom := s.Info.MaxZoom
	if minZoom == nil {
		z := uint8(defaultMinZoom)
		minZoom = &z
	}
	if maxZoom == nil {
		z := uint8(defaultMaxZoom)
		maxZoom = &z
	}

	tj := tiles.TileJSON{MinZoom: minZoom, MaxZoom: maxZoom}
	if s.Info.Bounds != nil {
		tj.Bounds = s.Info.Bounds[:]
	}
	if name, ok := s.Info.TileJSONExtra["name"].(string); ok {
		tj.Name = name
	}
	if desc, ok := s.Info.TileJSONExtra["description"].(string); ok {
		tj.Description = desc
	}
	if attr, ok := s.Info.TileJSONExtra["attribution"].(string); ok {
		tj.Attribution = attr
	}
	return tj
}

// SupportsURLQuery reports false: table sources take no per-request query
// parameters, unlike function sources (spec.md's Non-goals exclude function
// sources from this implementation).
func (s *TableSource) SupportsURLQuery() bool { return false }

func (s *TableSource) IsValidZoom(zoom uint8) bool {
	min, max := uint8(defaultMinZoom), uint8(defaultMaxZoom)
	if s.Info.MinZoom != nil {
		min = *s.Info.MinZoom
	}
	if s.Info.MaxZoom != nil {
		max = *s.Info.MaxZoom
	}
	return zoom >= min && zoom <= max
}

func (s *TableSource) GetTile(ctx context.Context, coord tilecoord.Coord, _ map[string]string) (tilecoord.Tile, error) {
	var data []byte
	row := s.Pool.QueryRow(ctx, s.query, coord.Z, coord.X, coord.Y)
	if err := row.Scan(&data); err != nil {
		return tilecoord.Tile{}, martinerr.Internal("querying tile for "+s.Info.FormatID(), err)
	}
	return tilecoord.New(data, s.TileInfo()), nil
}
