// Package pgcatalog introspects a PostGIS database for geometry-bearing
// tables and views, resolves their SRID against the source config, and
// synthesizes the ST_AsMVT query each one is served with. Ported from
// martin/src/pg/table_source.rs.
package pgcatalog

// Bounds is a WGS84 bounding box [west, south, east, north].
type Bounds [4]float64

// TableInfo describes one geometry-bearing table or view, merging what the
// database catalog reports with whatever a source's own configuration
// overrides (spec.md §4.4).
type TableInfo struct {
	Schema         string
	Table          string
	GeometryColumn string
	GeometryIndex  bool
	IsView         bool
	SRID           int32
	GeometryType   string
	Properties     map[string]string // property name -> PostgreSQL column type
	PropMapping    map[string]string // requested property/id-column name -> actual db column
	IDColumn       string
	LayerID        string
	Extent         *uint32
	Buffer         *uint32
	ClipGeom       *bool
	Bounds         *Bounds
	MinZoom        *uint8
	MaxZoom        *uint8
	TileJSONExtra  map[string]any // parsed SQL-comment tilejson override, if any
}

// FormatID returns the "schema.table.geometry_column" identifier used in log
// messages and error text throughout the original implementation.
func (t TableInfo) FormatID() string {
	return t.Schema + "." + t.Table + "." + t.GeometryColumn
}

const (
	defaultExtent   = 4096
	defaultBuffer   = 64
	defaultClipGeom = true
	defaultMinZoom  = 0
	defaultMaxZoom  = 22
)
