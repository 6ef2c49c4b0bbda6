// Package testutil provides shared test utilities.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/lacylights-matrix/internal/database"
	"github.com/bbernstein/lacylights-matrix/internal/database/repositories"
)

// TestDB holds the test database and repositories.
type TestDB struct {
	DB      *gorm.DB
	RunRepo *repositories.RunRepository
}

// SetupTestDB creates a migrated in-memory SQLite database. It is closed
// when the test ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Every connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })

	return &TestDB{
		DB:      db,
		RunRepo: repositories.NewRunRepository(db),
	}
}

// PacketFor builds an ArtDmx payload of pixelsPerUniverse RGB triples all
// set to fill.
func PacketFor(pixelsPerUniverse int, fill byte) []byte {
	data := make([]byte, pixelsPerUniverse*3)
	for i := range data {
		data[i] = fill
	}
	return data
}
