// Package journal persists finished vehicle trips through GORM, to SQLite for
// local runs or Postgres for shared analysis.
package journal

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cxd309/traffic-sim/internal/trip"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver reports an unsupported database driver name.
var ErrUnknownDriver = errors.New("unknown journal driver")

// Trip is the persisted row type.
type Trip = trip.Trip

// Open connects to the journal database.
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	case DriverPostgres:
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), cfg)
	default:
		return nil, fmt.Errorf("%q: %w", driver, ErrUnknownDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s journal: %w", driver, err)
	}
	if driver == DriverSQLite {
		// in-memory databases are per connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates the journal tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Trip{}); err != nil {
		return fmt.Errorf("migrating journal: %w", err)
	}
	return nil
}

// Summary aggregates the journal.
type Summary struct {
	Total     int64            `json:"total"`
	ByOutcome map[string]int64 `json:"by_outcome"`
	MeanTicks float64          `json:"mean_ticks"`
}

// Summarize counts trips per outcome and the mean trip length.
func Summarize(db *gorm.DB) (Summary, error) {
	var rows []struct {
		Outcome string
		Count   int64
		Ticks   float64
	}
	err := db.Model(&Trip{}).
		Select("outcome, COUNT(*) AS count, CAST(AVG(end_tick - spawn_tick) AS REAL) AS ticks").
		Group("outcome").
		Order("outcome").
		Scan(&rows).Error
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing journal: %w", err)
	}
	s := Summary{ByOutcome: make(map[string]int64, len(rows))}
	var weighted float64
	for _, r := range rows {
		s.ByOutcome[r.Outcome] = r.Count
		s.Total += r.Count
		weighted += r.Ticks * float64(r.Count)
	}
	if s.Total > 0 {
		s.MeanTicks = weighted / float64(s.Total)
	}
	return s, nil
}
