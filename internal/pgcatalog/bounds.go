package pgcatalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/logger"
)

// BoundsMode selects how table bounds are computed at startup, matching
// BoundsCalcType: Skip never queries the database, Quick races the query
// against DefaultBoundsTimeout and leaves bounds unset on timeout, Calc
// always waits for the query to finish.
type BoundsMode int

const (
	BoundsSkip BoundsMode = iota
	BoundsQuick
	BoundsCalc
)

// DefaultBoundsTimeout bounds how long BoundsQuick waits before giving up.
const DefaultBoundsTimeout = 5 * time.Second

// boundsQuery computes the WGS84 bounding box of a geometry column,
// expanding single-point geometries by 1 unit so they produce a
// non-degenerate box, matching calc_bounds's real_bounds CTE.
const boundsQueryTemplate = `
WITH real_bounds AS (SELECT ST_SetSRID(ST_Extent(%s), %d) AS rb FROM %s.%s)
SELECT
    ST_XMin(bounds) AS west, ST_YMin(bounds) AS south,
    ST_XMax(bounds) AS east, ST_YMax(bounds) AS north
FROM (
    SELECT ST_Transform(
        CASE
            WHEN (SELECT ST_GeometryType(rb) FROM real_bounds LIMIT 1) = 'ST_Point'
            THEN ST_SetSRID(ST_Extent(ST_Expand(%s, 1)), %d)
            ELSE (SELECT rb FROM real_bounds)
        END,
        4326
    ) AS bounds
    FROM %s.%s
) AS b;`

func boundsQuery(info TableInfo) string {
	schema, table := escapeIdentifier(info.Schema), escapeIdentifier(info.Table)
	geom := escapeIdentifier(info.GeometryColumn)
	return fmt.Sprintf(boundsQueryTemplate, geom, info.SRID, schema, table, geom, info.SRID, schema, table)
}

// CalcBounds runs boundsQuery against pool, applying the timeout/skip
// semantics BoundsMode describes. Returns (nil, nil) whenever bounds were
// not computed (Skip, or a Quick timeout) rather than an error.
func CalcBounds(ctx context.Context, pool Pool, id string, info TableInfo, mode BoundsMode) (*Bounds, error) {
	if mode == BoundsSkip {
		return nil, nil
	}

	runQuery := func(ctx context.Context) (*Bounds, error) {
		var b Bounds
		row := pool.QueryRow(ctx, boundsQuery(info))
		if err := row.Scan(&b[0], &b[1], &b[2], &b[3]); err != nil {
			return nil, fmt.Errorf("querying table bounds for %s: %w", info.FormatID(), err)
		}
		return &b, nil
	}

	if mode == BoundsCalc {
		return runQuery(ctx)
	}

	qctx, cancel := context.WithTimeout(ctx, DefaultBoundsTimeout)
	defer cancel()
	bounds, err := runQuery(qctx)
	if err != nil {
		if qctx.Err() != nil {
			logger.Warningf(
				"timeout computing %s bounds for %s, aborting query; use --bounds=calc to wait until complete, "+
					"or check the table for missing indices", info.FormatID(), id)
			return nil, nil
		}
		return nil, err
	}
	return bounds, nil
}
