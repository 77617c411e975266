package journal

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestRecorderPersistsTrips(t *testing.T) {
	db := newTestDB(t)
	r, err := NewRecorder(db, 2, zerolog.Nop())
	require.NoError(t, err)

	trips := []Trip{
		{VehicleID: "a", Origin: "n0_0", Destination: "n3_0", EndedAt: "n3_0", Outcome: "arrived", SpawnTick: 10, EndTick: 110},
		{VehicleID: "b", Origin: "n0_0", Destination: "n3_0", EndedAt: "n3_0", Outcome: "arrived", SpawnTick: 20, EndTick: 320},
		{VehicleID: "c", Origin: "n3_0", Destination: "n0_0", EndedAt: "n1_0", Outcome: "deadlock", SpawnTick: 5, EndTick: 1505},
		{VehicleID: "d", Origin: "n3_0", Destination: "n0_0", EndedAt: "n2_0", Outcome: "no_route", SpawnTick: 7, EndTick: 7},
		{VehicleID: "e", Origin: "n0_0", Destination: "n3_0", EndedAt: "n3_0", Outcome: "arrived", SpawnTick: 0, EndTick: 500},
	}
	for _, tr := range trips {
		require.True(t, r.Record(tr))
	}
	require.NoError(t, r.Close())
	assert.Equal(t, int64(5), r.Written())

	var stored []Trip
	require.NoError(t, db.Order("id").Find(&stored).Error)
	require.Len(t, stored, 5)
	assert.Equal(t, "a", stored[0].VehicleID)
	assert.Equal(t, uint64(100), stored[0].Ticks())

	s, err := Summarize(db)
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.Total)
	assert.Equal(t, map[string]int64{"arrived": 3, "deadlock": 1, "no_route": 1}, s.ByOutcome)
	assert.InDelta(t, (100+300+1500+0+500)/5.0, s.MeanTicks, 1e-6)
}

func TestRecorderAfterClose(t *testing.T) {
	r, err := NewRecorder(newTestDB(t), 10, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.False(t, r.Record(Trip{VehicleID: "late"}))
	assert.Equal(t, int64(1), r.Dropped())
}

func TestSummarizeEmpty(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db))
	s, err := Summarize(db)
	require.NoError(t, err)
	assert.Zero(t, s.Total)
	assert.Empty(t, s.ByOutcome)
	assert.Zero(t, s.MeanTicks)
}
