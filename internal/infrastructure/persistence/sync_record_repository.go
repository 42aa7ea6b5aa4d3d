package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

// defaultRecentLimit bounds FindRecent when the caller passes no limit
const defaultRecentLimit = 50

// SyncRecordModel is the GORM model for sync records
type SyncRecordModel struct {
	ID            uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Operation     string    `gorm:"type:varchar(32);index;not null"`
	Direction     string    `gorm:"type:varchar(16);not null"`
	OrderNumber   string    `gorm:"type:varchar(100);index"`
	RemoteOrderID *int64
	Outcome       string    `gorm:"type:varchar(16);not null"`
	Message       string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"index;not null"`
}

// TableName returns the table name for the model
func (SyncRecordModel) TableName() string {
	return "sync_records"
}

// ToEntity converts the model to a domain entity
func (m *SyncRecordModel) ToEntity() fulfillment.SyncRecord {
	return fulfillment.SyncRecord{
		ID:            m.ID,
		Operation:     fulfillment.SyncOperation(m.Operation),
		Direction:     fulfillment.SyncDirection(m.Direction),
		OrderNumber:   m.OrderNumber,
		RemoteOrderID: m.RemoteOrderID,
		Outcome:       fulfillment.SyncOutcome(m.Outcome),
		Message:       m.Message,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

// SyncRecordModelFromEntity creates a model from a domain entity
func SyncRecordModelFromEntity(e *fulfillment.SyncRecord) *SyncRecordModel {
	return &SyncRecordModel{
		ID:            e.ID,
		Operation:     string(e.Operation),
		Direction:     string(e.Direction),
		OrderNumber:   e.OrderNumber,
		RemoteOrderID: e.RemoteOrderID,
		Outcome:       string(e.Outcome),
		Message:       e.Message,
		CreatedAt:     e.CreatedAt,
	}
}

// SyncRecordRepository implements the fulfillment.SyncRecordRepository interface
type SyncRecordRepository struct {
	db *gorm.DB
}

// NewSyncRecordRepository creates a new sync record repository
func NewSyncRecordRepository(db *gorm.DB) *SyncRecordRepository {
	return &SyncRecordRepository{db: db}
}

// Save persists a new sync record
func (r *SyncRecordRepository) Save(ctx context.Context, record *fulfillment.SyncRecord) error {
	return r.db.WithContext(ctx).Create(SyncRecordModelFromEntity(record)).Error
}

// FindRecent returns up to limit records, newest first
func (r *SyncRecordRepository) FindRecent(ctx context.Context, limit int) ([]fulfillment.SyncRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	var models []SyncRecordModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	records := make([]fulfillment.SyncRecord, len(models))
	for i := range models {
		records[i] = models[i].ToEntity()
	}
	return records, nil
}

// DeleteBefore removes records created before cutoff
func (r *SyncRecordRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&SyncRecordModel{})
	return result.RowsAffected, result.Error
}

// Ensure SyncRecordRepository implements the domain interface
var _ fulfillment.SyncRecordRepository = (*SyncRecordRepository)(nil)
