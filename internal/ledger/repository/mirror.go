package repository

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

type mirrorStore struct {
	db *gorm.DB
}

func (r *mirrorStore) Get(ctx context.Context, p domain.PartitionKey, itemID string) (*domain.MirrorEntry, error) {
	var entry domain.MirrorEntry
	err := r.db.WithContext(ctx).
		Where("partition_key = ? AND item_id = ?", p, itemID).
		First(&entry).Error
	if err != nil {
		return nil, translate(err, domain.ErrItemNotFound)
	}
	return &entry, nil
}

func (r *mirrorStore) List(ctx context.Context, p domain.PartitionKey) (entries []domain.MirrorEntry, err error) {
	ctx, span := startSpan(ctx, "mirror.List", p)
	defer func() { endSpan(span, err) }()

	err = r.db.WithContext(ctx).
		Where("partition_key = ?", p).
		Order("category, name, item_id").
		Find(&entries).Error
	return entries, translate(err, nil)
}

// Sync creates the entry when it is missing rather than rejecting the write.
func (r *mirrorStore) Sync(ctx context.Context, item *domain.Item) (err error) {
	ctx, span := startSpan(ctx, "mirror.Sync", item.PartitionKey,
		attribute.String("item.id", item.ID),
		attribute.String("stock.available", item.AvailableStock.String()),
	)
	defer func() { endSpan(span, err) }()

	entry := domain.MirrorOf(item)
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "partition_key"}, {Name: "item_id"}},
			UpdateAll: true,
		}).
		Create(entry).Error
	return translate(err, nil)
}

func (r *mirrorStore) Delete(ctx context.Context, p domain.PartitionKey, itemID string) error {
	err := r.db.WithContext(ctx).
		Where("partition_key = ? AND item_id = ?", p, itemID).
		Delete(&domain.MirrorEntry{}).Error
	return translate(err, nil)
}
