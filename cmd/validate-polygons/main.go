// Command validate-polygons runs one validator against stored polygons or a
// GeoJSON file and prints the results as JSON.
//
//	validate-polygons -kind spikes 1f0e...c2 7a41...9d
//	validate-polygons -kind geometry_type -geojson upload.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/restoration-monitor/polyvalidate/internal/config"
	"github.com/restoration-monitor/polyvalidate/internal/db"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
	"github.com/restoration-monitor/polyvalidate/internal/polygons/postgis"
	"github.com/restoration-monitor/polyvalidate/internal/validation"
)

func main() {
	kindFlag := flag.String("kind", "", "validator kind (one of: "+kindList()+")")
	geojsonPath := flag.String("geojson", "", "validate a GeoJSON Feature or geometry file instead of stored polygons")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	kind, err := validation.ParseKind(*kindFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	if *geojsonPath == "" && flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "either -geojson or at least one polygon uuid is required")
		flag.Usage()
		os.Exit(2)
	}

	ids := make([]uuid.UUID, 0, flag.NArg())
	for _, arg := range flag.Args() {
		id, err := uuid.Parse(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid polygon uuid %q\n", arg)
			os.Exit(2)
		}
		ids = append(ids, id)
	}

	_ = godotenv.Load(".env.local")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := db.Connect(cfg); err != nil {
		log.Fatalf("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	registry := validation.NewRegistry(postgis.NewGeometryStore(db.DB), postgis.NewEntityLookup(db.DB))

	var out any
	if *geojsonPath != "" {
		out, err = runGeometry(ctx, registry, kind, *geojsonPath)
	} else {
		out, err = runPolygons(ctx, registry, kind, ids)
	}
	if err != nil {
		log.Fatalf("%s: %v", kind, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

func runGeometry(ctx context.Context, registry *validation.Registry, kind validation.Kind, path string) (any, error) {
	v, err := registry.GeometryValidator(kind)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	feature, err := geometry.ParseFeature(data)
	if err != nil {
		return nil, err
	}
	return v.ValidateGeometry(ctx, feature)
}

func runPolygons(ctx context.Context, registry *validation.Registry, kind validation.Kind, ids []uuid.UUID) (any, error) {
	v, err := registry.Validator(kind)
	if err != nil {
		return nil, err
	}
	if len(ids) == 1 {
		res, err := v.ValidatePolygon(ctx, ids[0])
		if err != nil {
			return nil, err
		}
		return validation.PolygonResult{PolygonUUID: ids[0], Valid: res.Valid, ExtraInfo: res.ExtraInfo}, nil
	}
	return v.ValidatePolygons(ctx, ids)
}

func kindList() string {
	names := make([]string, 0, len(validation.Kinds))
	for _, k := range validation.Kinds {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}
