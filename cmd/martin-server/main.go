// Package main provides the CLI entry point for martin-server.
//
// Usage:
//
//	martin-server serve --listen :3000 --database-url postgres://... --font-dir ./fonts
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/logger"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyurik/martin-go/internal/encoding"
	"github.com/nyurik/martin-go/internal/fontcatalog"
	"github.com/nyurik/martin-go/internal/glyphs"
	"github.com/nyurik/martin-go/internal/pgcatalog"
	"github.com/nyurik/martin-go/internal/srv"
	"github.com/nyurik/martin-go/internal/tilecache"
	"github.com/nyurik/martin-go/internal/tiles"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve", "s":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		printVersion()
	default:
		if err := runServe(os.Args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

func printUsage() {
	fmt.Println(`martin-server - a vector-tile and glyph server

Usage:
  martin-server serve [flags]
  martin-server [flags]
  martin-server help
  martin-server version

Commands:
  serve, s      Start the HTTP server
  help          Show this help message
  version       Show version information

Flags:
  --listen          Address to listen on (default ":3000")
  --database-url    PostGIS connection string (default $DATABASE_URL)
  --font-dir        Font directory to scan (repeatable)
  --max-feature-count  LIMIT applied to every tile query (default: unlimited)
  --tile-cache-bytes   Tile cache byte capacity (default 64MiB)
  --glyph-cache-bytes  Glyph cache byte capacity (default 16MiB)
  --bounds          Startup bounds computation mode: skip|quick|calc (default "quick")
  --prefer-brotli   Prefer brotli over gzip when the client sends no ranked preference
  --default-srid    SRID to assume for tables whose geometry column has SRID=0 (default: skip them)`)
}

func printVersion() {
	fmt.Println("martin-server version 0.1.0")
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", ":3000", "address to listen on")
	databaseURL := fs.String("database-url", os.Getenv("DATABASE_URL"), "PostGIS connection string")
	maxFeatureCount := fs.Int("max-feature-count", 0, "LIMIT applied to every tile query")
	tileCacheBytes := fs.Int("tile-cache-bytes", 64<<20, "tile cache byte capacity")
	glyphCacheBytes := fs.Int("glyph-cache-bytes", 16<<20, "glyph cache byte capacity")
	boundsMode := fs.String("bounds", "quick", "startup bounds computation mode: skip|quick|calc")
	preferBrotli := fs.Bool("prefer-brotli", false, "prefer brotli over gzip by default")
	defaultSRID := fs.Int("default-srid", 0, "SRID to assume for tables whose geometry column has SRID=0 (0 disables this: such tables are skipped)")
	var fontDirs []string
	fs.Func("font-dir", "font directory to scan (repeatable)", func(s string) error {
		fontDirs = append(fontDirs, s)
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logger.Init("martin-server", true, false, os.Stderr)
	defer log.Close()

	ctx := context.Background()

	fonts, err := fontcatalog.Build(fontDirs)
	if err != nil {
		return fmt.Errorf("scanning font directories: %w", err)
	}
	logger.Infof("font catalog ready: %d faces", fonts.Len())

	sources := tiles.MapRegistry{}
	var pool *pgxpool.Pool
	if *databaseURL != "" {
		pool, err = pgxpool.New(ctx, *databaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		var defaultSRIDPtr *int32
		if *defaultSRID != 0 {
			srid := int32(*defaultSRID)
			defaultSRIDPtr = &srid
		}

		if err := buildPgSources(ctx, pool, sources, parseBoundsMode(*boundsMode), *maxFeatureCount, defaultSRIDPtr); err != nil {
			return fmt.Errorf("building PostGIS sources: %w", err)
		}
		logger.Infof("PostGIS catalog ready: %d sources", len(sources))
	}

	preferred := encoding.PreferredGzip
	if *preferBrotli {
		preferred = encoding.PreferredBrotli
	}

	cfg := srv.Config{
		Sources:           sources,
		Fonts:             fonts,
		FaceLoader:        glyphs.OSFaceLoader,
		TileCache:         tilecache.New(*tileCacheBytes),
		GlyphCache:        tilecache.New(*glyphCacheBytes),
		PreferredEncoding: preferred,
		MaxFeatureCount:   *maxFeatureCount,
	}

	router := srv.NewRouter(cfg)
	server := &http.Server{
		Addr:              *listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Infof("listening on %s", *listen)
	return server.ListenAndServe()
}

// buildPgSources introspects pool once, resolves the PostGIS margin
// capability, and registers one tiles.Source per geometry column. Since this
// command has no per-source config file, each table is merged against an
// empty config with its own introspected properties pre-selected, so every
// discovered column is still exposed in the tile by default; only the SRID
// resolution and skip-on-conflict behavior of pgcatalog.MergeTableInfo
// applies (spec.md §4.4).
func buildPgSources(ctx context.Context, pool *pgxpool.Pool, sources tiles.MapRegistry, mode pgcatalog.BoundsMode, maxFeatureCount int, defaultSRID *int32) error {
	margin, err := pgcatalog.DetectTileMargin(ctx, pool)
	if err != nil {
		return err
	}

	tables, err := pgcatalog.QueryAvailableTables(ctx, pool)
	if err != nil {
		return err
	}

	for schema, byTable := range tables {
		for table, byGeom := range byTable {
			for geom, dbInfo := range byGeom {
				id := sourceIDFor(schema, table, geom, sources)

				cfgInfo := pgcatalog.TableInfo{Properties: dbInfo.Properties}
				info, ok := pgcatalog.MergeTableInfo(defaultSRID, id, cfgInfo, dbInfo)
				if !ok {
					logger.Warningf("skipping source %s: unable to resolve SRID or properties", id)
					continue
				}

				bounds, err := pgcatalog.CalcBounds(ctx, pool, id, info, mode)
				if err != nil {
					return err
				}
				info.Bounds = bounds

				sources[id] = pgcatalog.NewTableSource(id, info, pool, margin, maxFeatureCount)
			}
		}
	}
	return nil
}

// sourceIDFor builds a unique source ID, appending the geometry column name
// only when the plain ID is already registered (so for a table with several
// geometry columns, the first one registered keeps the plain ID).
func sourceIDFor(schema, table, geom string, existing tiles.MapRegistry) string {
	id := table
	if schema != "public" {
		id = schema + "." + table
	}
	if _, taken := existing[id]; !taken {
		return id
	}
	return strings.TrimSuffix(id, ".") + "." + geom
}

func parseBoundsMode(s string) pgcatalog.BoundsMode {
	switch strings.ToLower(s) {
	case "skip":
		return pgcatalog.BoundsSkip
	case "calc":
		return pgcatalog.BoundsCalc
	default:
		return pgcatalog.BoundsQuick
	}
}
