package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/config"
)

func TestNewDatabase_SQLite(t *testing.T) {
	db, err := NewDatabase(config.RecordsConfig{Driver: "sqlite", SQLitePath: ":memory:"}, &config.DatabaseConfig{})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Ping())
	require.NoError(t, db.Migrate())

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)

	repo := NewSyncRecordRepository(db.DB)
	record := fulfillment.NewSyncRecord(fulfillment.SyncOperationUpdateShipment, "S1", fulfillment.SyncOutcomeFailed, "boom", time.Now())
	require.NoError(t, repo.Save(context.Background(), record))

	found, err := repo.FindRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, fulfillment.SyncOutcomeFailed, found[0].Outcome)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(config.RecordsConfig{Driver: "mysql"}, &config.DatabaseConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported records driver")
}

func TestConnectionStats_Struct(t *testing.T) {
	stats := ConnectionStats{
		OpenConnections: 10,
		InUse:           6,
		Idle:            4,
	}
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
}
