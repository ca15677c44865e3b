package pgcatalog

import (
	"strings"
	"testing"
)

func TestEscapeIdentifier(t *testing.T) {
	if got := escapeIdentifier(`weird"name`); got != `"weird""name"` {
		t.Errorf("escapeIdentifier = %q", got)
	}
}

func TestEscapeLiteral(t *testing.T) {
	if got := escapeLiteral(`O'Brien`); got != `'O''Brien'` {
		t.Errorf("escapeLiteral = %q", got)
	}
}

func TestEscapeWithAlias(t *testing.T) {
	mapping := map[string]string{"id": "gid"}
	if got := escapeWithAlias(mapping, "id"); got != `, "gid" AS "id"` {
		t.Errorf("escapeWithAlias(remapped) = %q", got)
	}
	if got := escapeWithAlias(mapping, "name"); got != `, "name"` {
		t.Errorf("escapeWithAlias(plain) = %q", got)
	}
}

func TestCalcSRID(t *testing.T) {
	def := int32(3857)
	cases := []struct {
		name             string
		db, cfg          int32
		def              *int32
		wantSRID         int32
		wantOK           bool
	}{
		{"both zero, default present", 0, 0, &def, 3857, true},
		{"both zero, no default", 0, 0, nil, 0, false},
		{"db zero, cfg set", 0, 4326, nil, 4326, true},
		{"db set, cfg zero", 4326, 0, nil, 4326, true},
		{"both set, matching", 4326, 4326, nil, 4326, true},
		{"both set, mismatched", 4326, 3857, nil, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srid, ok := CalcSRID("public.t.geom", "src", c.db, c.cfg, c.def)
			if ok != c.wantOK {
				t.Fatalf("ok = %v, want %v", ok, c.wantOK)
			}
			if ok && srid != c.wantSRID {
				t.Errorf("srid = %d, want %d", srid, c.wantSRID)
			}
		})
	}
}

func TestTableToQueryShape(t *testing.T) {
	info := TableInfo{
		Schema:         "public",
		Table:          "roads",
		GeometryColumn: "geom",
		SRID:           4326,
		Properties:     map[string]string{"name": "text"},
	}
	query := TableToQuery("roads_src", info, false, 0)

	for _, want := range []string{
		`ST_AsMVT(tile, 'roads_src', 4096, 'geom')`,
		`ST_Transform(ST_CurveToLine("geom"), 3857)`,
		`FROM\n    "public"."roads"`,
		`, "name"`,
	} {
		want = strings.ReplaceAll(want, `\n`, "\n")
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q\nfull query:\n%s", want, query)
		}
	}
	if strings.Contains(query, "LIMIT") {
		t.Error("query should have no LIMIT clause when maxFeatureCount is 0")
	}
}

func TestTableToQueryWithMargin(t *testing.T) {
	info := TableInfo{Schema: "public", Table: "roads", GeometryColumn: "geom", SRID: 4326}
	query := TableToQuery("roads_src", info, true, 5)
	if !strings.Contains(query, "margin =>") {
		t.Error("expected margin clause when supportsMargin is true")
	}
	if !strings.Contains(query, "LIMIT 5") {
		t.Error("expected LIMIT 5 clause")
	}
}

func TestTableToQueryExplicitZeroBufferDisablesMargin(t *testing.T) {
	zero := uint32(0)
	info := TableInfo{Schema: "public", Table: "roads", GeometryColumn: "geom", SRID: 4326, Buffer: &zero}
	query := TableToQuery("roads_src", info, true, 0)
	if strings.Contains(query, "margin =>") {
		t.Error("expected no margin clause when buffer is explicitly 0")
	}
	if !strings.Contains(query, "ST_TileEnvelope($1::integer, $2::integer, $3::integer)") {
		t.Errorf("expected bare ST_TileEnvelope call, got query:\n%s", query)
	}
}

func TestNormalizeKeyCaseInsensitiveFallback(t *testing.T) {
	props := map[string]string{"Name": "text"}
	col, ok := NormalizeKey(props, "name", "property", "src")
	if !ok || col != "Name" {
		t.Errorf("NormalizeKey = (%q, %v), want (Name, true)", col, ok)
	}
	if _, ok := NormalizeKey(props, "missing", "property", "src"); ok {
		t.Error("expected NormalizeKey to fail for a missing column")
	}
}

func TestMergeTableInfo(t *testing.T) {
	dbInfo := TableInfo{
		Schema: "public", Table: "roads", GeometryColumn: "geom",
		SRID: 4326, GeometryType: "LineString",
		Properties: map[string]string{"Name": "text"},
	}
	cfgInfo := TableInfo{IDColumn: "name"}

	merged, ok := MergeTableInfo(nil, "roads_src", cfgInfo, dbInfo)
	if !ok {
		t.Fatal("expected merge to succeed")
	}
	if merged.SRID != 4326 {
		t.Errorf("SRID = %d, want 4326", merged.SRID)
	}
	if merged.PropMapping["name"] != "Name" {
		t.Errorf("PropMapping[name] = %q, want Name", merged.PropMapping["name"])
	}
}

func TestMergeTableInfoSRIDConflict(t *testing.T) {
	dbInfo := TableInfo{Schema: "public", Table: "roads", GeometryColumn: "geom", SRID: 4326}
	cfgInfo := TableInfo{SRID: 3857}

	if _, ok := MergeTableInfo(nil, "roads_src", cfgInfo, dbInfo); ok {
		t.Fatal("expected merge to fail on conflicting SRID")
	}
}
