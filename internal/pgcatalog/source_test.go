package pgcatalog

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/nyurik/martin-go/internal/tilecoord"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *[]byte:
			*p = r.values[i].([]byte)
		case *string:
			*p = r.values[i].(string)
		}
	}
	return nil
}

type fakePool struct {
	row fakeRow
}

func (p *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (p *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.row
}

func TestTableSourceGetTile(t *testing.T) {
	pool := &fakePool{row: fakeRow{values: []any{[]byte{1, 2, 3}}}}
	info := TableInfo{Schema: "public", Table: "roads", GeometryColumn: "geom", SRID: 3857}
	src := NewTableSource("roads_src", info, pool, false, 0)

	tile, err := src.GetTile(context.Background(), tilecoord.Coord{Z: 1, X: 2, Y: 3}, nil)
	if err != nil {
		t.Fatalf("GetTile: %v", err)
	}
	if string(tile.Data) != "\x01\x02\x03" {
		t.Errorf("tile.Data = %v", tile.Data)
	}
	if tile.Info.Format != tilecoord.FormatMvt {
		t.Errorf("Format = %v, want Mvt", tile.Info.Format)
	}
}

func TestTableSourceIsValidZoom(t *testing.T) {
	info := TableInfo{Schema: "public", Table: "roads", GeometryColumn: "geom"}
	src := NewTableSource("roads_src", info, nil, false, 0)

	if !src.IsValidZoom(0) || !src.IsValidZoom(22) {
		t.Error("expected default zoom range [0,22] to be valid")
	}
	if src.IsValidZoom(23) {
		t.Error("expected zoom 23 to be invalid under the default max")
	}
}

func TestTableSourceTileJSONZoomDefaults(t *testing.T) {
	info := TableInfo{Schema: "public", Table: "roads", GeometryColumn: "geom"}
	src := NewTableSource("roads_src", info, nil, false, 0)

	tj := src.TileJSON()
	if tj.MinZoom == nil || *tj.MinZoom != 0 {
		t.Errorf("MinZoom = %v, want 0", tj.MinZoom)
	}
	if tj.MaxZoom == nil || *tj.MaxZoom != 22 {
		t.Errorf("MaxZoom = %v, want 22", tj.MaxZoom)
	}
}
