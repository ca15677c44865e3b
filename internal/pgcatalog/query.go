package pgcatalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// escapeIdentifier double-quotes a SQL identifier, doubling embedded quotes,
// matching postgres_protocol::escape::escape_identifier's contract.
func escapeIdentifier(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// escapeLiteral single-quotes a SQL string literal, doubling embedded
// quotes, matching postgres_protocol::escape::escape_literal.
func escapeLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}

// escapeWithAlias renders ", <column>" or ", <column> AS <alias>" depending
// on whether the requested property name has been remapped to a different
// actual database column, matching escape_with_alias.
func escapeWithAlias(mapping map[string]string, field string) string {
	column, remapped := mapping[field]
	if !remapped {
		column = field
	}
	if field == column {
		return ", " + escapeIdentifier(column)
	}
	return fmt.Sprintf(", %s AS %s", escapeIdentifier(column), escapeIdentifier(field))
}

// SupportsTileMargin reports whether the connected PostGIS version supports
// ST_TileEnvelope's margin parameter (PostGIS >= 3.1), detected once at pool
// construction per §9's "detect once at pool init" design note.
type SupportsTileMargin bool

// TableToQuery synthesizes the ST_AsMVT query for one table source,
// ported verbatim (in shape) from table_to_query. id is the source ID used
// as the default MVT layer name. maxFeatureCount, when > 0, adds a LIMIT
// clause.
func TableToQuery(id string, info TableInfo, supportsMargin SupportsTileMargin, maxFeatureCount int) string {
	schema := escapeIdentifier(info.Schema)
	table := escapeIdentifier(info.Table)
	geometryColumn := escapeIdentifier(info.GeometryColumn)
	srid := info.SRID

	var properties strings.Builder
	if info.Properties != nil {
		keys := make([]string, 0, len(info.Properties))
		for k := range info.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, column := range keys {
			properties.WriteString(escapeWithAlias(info.PropMapping, column))
		}
	}

	idName, idField := "", ""
	if info.IDColumn != "" {
		idName = ", " + escapeLiteral(info.IDColumn)
		idField = escapeWithAlias(info.PropMapping, info.IDColumn)
	}

	extent := uint32(defaultExtent)
	if info.Extent != nil {
		extent = *info.Extent
	}
	buffer := uint32(defaultBuffer)
	if info.Buffer != nil {
		buffer = *info.Buffer
	}

	bboxSearch := "ST_TileEnvelope($1::integer, $2::integer, $3::integer)"
	if buffer != 0 && bool(supportsMargin) {
		margin := float64(buffer) / float64(extent)
		bboxSearch = fmt.Sprintf("ST_TileEnvelope($1::integer, $2::integer, $3::integer, margin => %s)",
			strconv.FormatFloat(margin, 'g', -1, 64))
	}

	limitClause := ""
	if maxFeatureCount > 0 {
		limitClause = fmt.Sprintf("LIMIT %d", maxFeatureCount)
	}

	layerID := id
	if info.LayerID != "" {
		layerID = info.LayerID
	}
	layerIDLit := escapeLiteral(layerID)

	clipGeom := defaultClipGeom
	if info.ClipGeom != nil {
		clipGeom = *info.ClipGeom
	}

	query := fmt.Sprintf(`SELECT
  ST_AsMVT(tile, %s, %d, 'geom'%s)
FROM (
  SELECT
    ST_AsMVTGeom(
        ST_Transform(ST_CurveToLine(%s), 3857),
        ST_TileEnvelope($1::integer, $2::integer, $3::integer),
        %d, %d, %t
    ) AS geom
    %s%s
  FROM
    %s.%s
  WHERE
    %s && ST_Transform(%s, %d)
  %s
) AS tile;`,
		layerIDLit, extent, idName,
		geometryColumn,
		extent, buffer, clipGeom,
		idField, properties.String(),
		schema, table,
		geometryColumn, bboxSearch, srid,
		limitClause,
	)
	return strings.TrimSpace(query)
}
