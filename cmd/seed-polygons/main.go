// Command seed-polygons loads a GeoJSON FeatureCollection as draft site
// polygons of one site. Existing active polygons of the site are deactivated
// in the same transaction.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb/geojson"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
	"github.com/restoration-monitor/polyvalidate/internal/validation"
)

// CLI flags
var (
	geojsonPath = flag.String("geojson", "", "Path to the FeatureCollection (required)")
	siteFlag    = flag.String("site", "", "Site uuid the polygons belong to (required)")
	dsn         = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	dryRun      = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	confirm     = flag.Bool("confirm", false, "Required to replace the site's active polygons")
	advisoryKey = flag.Int64("advisory-lock", 0, "Optional Postgres advisory lock key (e.g., 424242). 0 = disabled")
)

// seedRow is one feature ready to insert.
type seedRow struct {
	Geometry []byte
	Fields   map[string]*string
}

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *geojsonPath == "" {
		fatalf("--geojson is required")
	}
	siteID, err := uuid.Parse(*siteFlag)
	if err != nil {
		fatalf("--site must be a uuid: %v", err)
	}

	data, err := os.ReadFile(*geojsonPath)
	if err != nil {
		fatalf("read: %v", err)
	}
	rows, err := loadFeatures(data)
	if err != nil {
		fatalf("GeoJSON error: %v", err)
	}
	fmt.Printf("Loaded %d features from %s\n", len(rows), *geojsonPath)

	if *dryRun {
		printPlan(rows)
		fmt.Println("Dry run complete. No changes made.")
		return
	}
	if !*confirm {
		fatalf("Refusing to run without --confirm. Add --dry-run to preview.")
	}
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op if already committed
	}()

	if *advisoryKey != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, *advisoryKey); err != nil {
			fatalf("advisory lock: %v", err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE site_polygon SET is_active = false WHERE site_id = $1 AND is_active = true`, siteID)
	if err != nil {
		fatalf("deactivate: %v", err)
	}
	replaced, _ := res.RowsAffected()

	if err := insertAll(ctx, tx, siteID, rows); err != nil {
		fatalf("insert data: %v", err)
	}
	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}
	fmt.Printf("Done: inserted=%d deactivated=%d site=%s\n", len(rows), replaced, siteID)
}

// loadFeatures parses the collection and rejects geometries that are not
// site boundaries or have out-of-range coordinates.
func loadFeatures(data []byte) ([]seedRow, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("no features")
	}

	typeCheck := validation.NewGeometryType()
	boundsCheck := validation.NewFeatureBounds(nil)

	rows := make([]seedRow, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("feature %d: missing geometry", i)
		}
		g, err := geometry.FromShape(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		feature := geometry.Feature{Geometry: g, Properties: f.Properties}

		for _, check := range []validation.GeometryValidator{typeCheck, boundsCheck} {
			res, err := check.ValidateGeometry(context.Background(), feature)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			if !res.Valid {
				return nil, fmt.Errorf("feature %d: invalid geometry: %+v", i, res.ExtraInfo)
			}
		}

		rows = append(rows, seedRow{Geometry: g.Raw, Fields: fieldsOf(f.Properties)})
	}
	return rows, nil
}

func fieldsOf(props geojson.Properties) map[string]*string {
	out := make(map[string]*string)
	for _, name := range []string{
		validation.FieldPolyName, validation.FieldPractice, validation.FieldTargetSys,
		validation.FieldDistr, validation.FieldNumTrees, validation.FieldPlantStart,
	} {
		v, ok := props[name]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if f, isFloat := v.(float64); isFloat && f == float64(int64(f)) {
			s = fmt.Sprintf("%d", int64(f))
		}
		out[name] = &s
	}
	return out
}

func printPlan(rows []seedRow) {
	for i, r := range rows {
		name := "(unnamed)"
		if p := r.Fields[validation.FieldPolyName]; p != nil {
			name = *p
		}
		fmt.Printf("  %3d. %s (%d bytes of geometry, %d attributes)\n", i+1, name, len(r.Geometry), len(r.Fields))
	}
}

func insertAll(ctx context.Context, tx *sql.Tx, siteID uuid.UUID, rows []seedRow) error {
	// prepared statements for speed & safety
	geomStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO polygon_geometry (uuid, geom)
		VALUES ($1, ST_SetSRID(ST_GeomFromGeoJSON($2), 4326))`)
	if err != nil {
		return err
	}
	defer geomStmt.Close()

	polyStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO site_polygon (uuid, poly_id, site_id, poly_name, practice, target_sys, distr,
			num_trees, plantstart, calc_area, status, is_active)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9,
			ST_Area(geom::geography) / 10000, $10, true
		FROM polygon_geometry WHERE uuid = $2`)
	if err != nil {
		return err
	}
	defer polyStmt.Close()

	for i, r := range rows {
		polyID := uuid.New()
		if _, err := geomStmt.ExecContext(ctx, polyID, string(r.Geometry)); err != nil {
			return fmt.Errorf("insert geometry %d: %w", i, err)
		}
		f := r.Fields
		if _, err := polyStmt.ExecContext(ctx, uuid.New(), polyID, siteID,
			f[validation.FieldPolyName], f[validation.FieldPractice], f[validation.FieldTargetSys],
			f[validation.FieldDistr], f[validation.FieldNumTrees], f[validation.FieldPlantStart],
			polygons.StatusDraft,
		); err != nil {
			return fmt.Errorf("insert site polygon %d: %w", i, err)
		}
	}
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
