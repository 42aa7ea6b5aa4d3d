package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type tracedRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestRegisterDBTracing(t *testing.T) {
	t.Run("records a span per statement", func(t *testing.T) {
		recorder := tracetest.NewSpanRecorder()
		provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		db := openTestDB(t)

		err := RegisterDBTracing(db, DBTracingConfig{
			Enabled:        true,
			DBSystem:       "sqlite",
			TracerProvider: provider,
		}, zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, db.Create(&tracedRow{Name: "R100"}).Error)
		var rows []tracedRow
		require.NoError(t, db.Find(&rows).Error)

		assert.Len(t, rows, 1)
		assert.GreaterOrEqual(t, len(recorder.Ended()), 2)
	})

	t.Run("disabled leaves the db untouched", func(t *testing.T) {
		db := openTestDB(t)
		require.NoError(t, RegisterDBTracing(db, DBTracingConfig{}, zap.NewNop()))
		_, registered := db.Config.Plugins["otelgorm"]
		assert.False(t, registered)
	})
}
