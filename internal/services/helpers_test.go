package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-flight-info-backend/internal/events"
	"github.com/tbourn/go-flight-info-backend/internal/repo"
)

// newServiceDB opens a migrated, airport-seeded SQLite file in a temp dir.
// A single connection serializes transactions so concurrent tests exercise
// the version guard rather than driver locking.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "flights.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	seeds, err := repo.LoadAirportSeeds("")
	if err != nil {
		t.Fatalf("seeds: %v", err)
	}
	if _, err := repo.SeedAirports(context.Background(), db, seeds); err != nil {
		t.Fatalf("seed airports: %v", err)
	}
	return db
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.FlightEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.FlightEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) snapshot() []events.FlightEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.FlightEvent(nil), p.events...)
}

var errBroker = errors.New("broker unavailable")

func ts(s string) time.Time {
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return v
}
