package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

// Journals are insert-only: there is no update or delete path.

type movementStore struct {
	db *gorm.DB
}

func (r *movementStore) Append(ctx context.Context, m *domain.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return translate(r.db.WithContext(ctx).Create(m).Error, nil)
}

func (r *movementStore) ListByItem(ctx context.Context, p domain.PartitionKey, itemID string) ([]domain.StockMovement, error) {
	var out []domain.StockMovement
	err := r.db.WithContext(ctx).
		Where("partition_key = ? AND item_id = ?", p, itemID).
		Order("created_at, id").
		Find(&out).Error
	return out, translate(err, nil)
}

type adjustmentStore struct {
	db *gorm.DB
}

func (r *adjustmentStore) Append(ctx context.Context, a *domain.BillAdjustment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return translate(r.db.WithContext(ctx).Create(a).Error, nil)
}

func (r *adjustmentStore) ListByOrder(ctx context.Context, p domain.PartitionKey, orderID string) ([]domain.BillAdjustment, error) {
	var out []domain.BillAdjustment
	err := r.db.WithContext(ctx).
		Where("partition_key = ? AND order_id = ?", p, orderID).
		Order("created_at, id").
		Find(&out).Error
	return out, translate(err, nil)
}
