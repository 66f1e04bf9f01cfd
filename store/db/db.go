package db

import (
	"github.com/pkg/errors"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/internal/profile"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store/db/postgres"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store/db/sqlite"
)

// ============================================================================
// DATABASE SUPPORT POLICY
// ============================================================================
// PostgreSQL: production. Vectors are stored with pgvector, arrays as text[].
// SQLite: development and tests. Vectors and arrays are stored as JSON text.
// ============================================================================

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
