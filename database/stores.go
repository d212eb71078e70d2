package database

import (
	"context"

	"belegflow-backend/models"

	"gorm.io/gorm"
)

// GormReceiptStore implements lifecycle.ReceiptStore on a tenant-scoped DB
// handle (normally the per-request transaction).
type GormReceiptStore struct {
	db *gorm.DB
}

func NewReceiptStore(db *gorm.DB) *GormReceiptStore {
	return &GormReceiptStore{db: db}
}

func (s *GormReceiptStore) ListByBatch(ctx context.Context, batchID string) ([]models.Receipt, error) {
	var receipts []models.Receipt
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&receipts).Error
	return receipts, err
}

// GormBatchStore implements lifecycle.BatchStore on a tenant-scoped DB handle.
type GormBatchStore struct {
	db *gorm.DB
}

func NewBatchStore(db *gorm.DB) *GormBatchStore {
	return &GormBatchStore{db: db}
}

func (s *GormBatchStore) UpdateFields(ctx context.Context, batchID string, fields map[string]any) error {
	return s.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ?", batchID).
		Updates(fields).Error
}
