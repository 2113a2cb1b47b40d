package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrPostGISMissing = errors.New("postgis extension is not installed")

// PostGISVersion returns the version string of the PostGIS extension, failing
// with ErrPostGISMissing when the extension is absent.
func PostGISVersion(ctx context.Context, d *gorm.DB) (string, error) {
	var version string
	err := d.WithContext(ctx).Raw(
		`SELECT extversion FROM pg_extension WHERE extname = 'postgis'`,
	).Row().Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrPostGISMissing
	}
	if err != nil {
		return "", fmt.Errorf("postgis version query failed: %w", err)
	}
	return version, nil
}
