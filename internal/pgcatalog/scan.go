package pgcatalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/google/logger"
)

// availableTablesQuery introspects geometry_columns plus pg_index/pg_views
// for every schema-qualified table or view with a geometry column, along
// with any tilejson override left as a SQL comment on the table.
const availableTablesQuery = `
SELECT
    f_table_schema AS schema,
    f_table_name AS name,
    f_geometry_column AS geom,
    EXISTS (
        SELECT 1 FROM pg_index i
        JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attname = f_geometry_column
        WHERE i.indrelid = (quote_ident(f_table_schema) || '.' || quote_ident(f_table_name))::regclass
          AND a.attnum = ANY(i.indkey)
    ) AS geom_idx,
    EXISTS (
        SELECT 1 FROM pg_views v WHERE v.schemaname = f_table_schema AND v.viewname = f_table_name
    ) AS is_view,
    srid,
    type,
    obj_description((quote_ident(f_table_schema) || '.' || quote_ident(f_table_name))::regclass) AS description,
    (
        SELECT jsonb_object_agg(a.attname, format_type(a.atttypid, a.atttypmod))
        FROM pg_attribute a
        WHERE a.attrelid = (quote_ident(f_table_schema) || '.' || quote_ident(f_table_name))::regclass
          AND a.attnum > 0 AND NOT a.attisdropped
    ) AS properties
FROM geometry_columns
`

// Pool is the subset of pgxpool.Pool this package depends on, so tests can
// substitute a fake without a live PostGIS connection.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Pool = (*pgxpool.Pool)(nil)

// row-key for the nested schema -> table -> geometry_column map
// QueryAvailableTables returns, matching SqlTableInfoMapMapMap.
type TableMap map[string]map[string]map[string]TableInfo

// QueryAvailableTables introspects every geometry-bearing table/view visible
// to pool, matching table_source.rs's query_available_tables. A SQL comment
// on the table that fails to parse as JSON is logged and ignored, falling
// back to auto-generated tilejson.
func QueryAvailableTables(ctx context.Context, pool Pool) (TableMap, error) {
	rows, err := pool.Query(ctx, availableTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("querying available tables: %w", err)
	}
	defer rows.Close()

	res := make(TableMap)
	for rows.Next() {
		var (
			schema, table, geom, geomType string
			geomIdx, isView               bool
			srid                          int32
			description                   *string
			properties                    []byte
		)
		if err := rows.Scan(&schema, &table, &geom, &geomIdx, &isView, &srid, &geomType, &description, &properties); err != nil {
			return nil, fmt.Errorf("scanning available tables row: %w", err)
		}

		info := TableInfo{
			Schema:         schema,
			Table:          table,
			GeometryColumn: geom,
			GeometryIndex:  geomIdx,
			IsView:         isView,
			SRID:           srid,
			GeometryType:   geomType,
		}
		if len(properties) > 0 {
			var props map[string]string
			if err := json.Unmarshal(properties, &props); err == nil {
				info.Properties = props
			}
		}
		if description != nil {
			var override map[string]any
			if err := json.Unmarshal([]byte(*description), &override); err == nil {
				info.TileJSONExtra = override
			} else {
				logger.Warningf(
					"unable to deserialize SQL comment on %s.%s as tilejson, the automatically generated tilejson will be used: %v",
					schema, table, err)
			}
		}

		if !isView && !geomIdx {
			logger.Warningf("table %s.%s has no spatial index on column %s", schema, table, geom)
		}

		if res[schema] == nil {
			res[schema] = make(map[string]map[string]TableInfo)
		}
		if res[schema][table] == nil {
			res[schema][table] = make(map[string]TableInfo)
		}
		if _, dup := res[schema][table][geom]; dup {
			logger.Warningf("unexpected duplicate table %s", info.FormatID())
		}
		res[schema][table][geom] = info
	}
	return res, rows.Err()
}
