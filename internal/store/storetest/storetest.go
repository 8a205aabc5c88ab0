// Package storetest opens throwaway in-memory databases for tests.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/uptrace/bun/driver/sqliteshim"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/farellandr/confpass/internal/models"
)

// NewDB returns a migrated, empty SQLite database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Dialector{DriverName: sqliteshim.ShimName, DSN: dsn}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.Attendee{}); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// Seed inserts rows directly, bypassing any business logic.
func Seed(t testing.TB, db *gorm.DB, attendees ...models.Attendee) {
	t.Helper()

	for i := range attendees {
		if err := db.WithContext(context.Background()).Create(&attendees[i]).Error; err != nil {
			t.Fatalf("seed %s: %v", attendees[i].Ref, err)
		}
	}
}

// Fetch reads a row by ref, failing the test when it is missing.
func Fetch(t testing.TB, db *gorm.DB, ref string) models.Attendee {
	t.Helper()

	var attendee models.Attendee
	if err := db.Where("ref = ?", ref).First(&attendee).Error; err != nil {
		t.Fatalf("fetch %s: %v", ref, err)
	}
	return attendee
}

// Count returns the number of rows in the attendees table.
func Count(t testing.TB, db *gorm.DB) int64 {
	t.Helper()

	var n int64
	if err := db.Model(&models.Attendee{}).Count(&n).Error; err != nil {
		t.Fatalf("count attendees: %v", err)
	}
	return n
}
