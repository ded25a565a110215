package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

type itemStore struct {
	db *gorm.DB
}

func (r *itemStore) Get(ctx context.Context, p domain.PartitionKey, itemID string) (item *domain.Item, err error) {
	ctx, span := startSpan(ctx, "items.Get", p, attribute.String("item.id", itemID))
	defer func() { endSpan(span, err) }()

	var found domain.Item
	err = r.db.WithContext(ctx).
		Where("partition_key = ? AND id = ?", p, itemID).
		First(&found).Error
	if err != nil {
		return nil, translate(err, domain.ErrItemNotFound)
	}
	return &found, nil
}

// lock reads the item and holds a row lock until the transaction ends.
func (r *itemStore) lock(ctx context.Context, p domain.PartitionKey, itemID string) (*domain.Item, error) {
	var found domain.Item
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("partition_key = ? AND id = ?", p, itemID).
		First(&found).Error
	if err != nil {
		return nil, translate(err, domain.ErrItemNotFound)
	}
	return &found, nil
}

func (r *itemStore) List(ctx context.Context, p domain.PartitionKey) (items []domain.Item, err error) {
	ctx, span := startSpan(ctx, "items.List", p)
	defer func() { endSpan(span, err) }()

	err = r.db.WithContext(ctx).
		Where("partition_key = ?", p).
		Order("category, name, id").
		Find(&items).Error
	span.SetAttributes(attribute.Int("result.count", len(items)))
	return items, translate(err, nil)
}

func (r *itemStore) Count(ctx context.Context, p domain.PartitionKey) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Item{}).Where("partition_key = ?", p).Count(&count).Error
	return count, translate(err, nil)
}

func (r *itemStore) Create(ctx context.Context, item *domain.Item) (err error) {
	ctx, span := startSpan(ctx, "items.Create", item.PartitionKey, attribute.String("item.id", item.ID))
	defer func() { endSpan(span, err) }()

	if err = item.Validate(); err != nil {
		return err
	}
	// item identity is append-only within a partition
	var existing int64
	err = r.db.WithContext(ctx).Model(&domain.Item{}).
		Where("partition_key = ? AND id = ?", item.PartitionKey, item.ID).
		Count(&existing).Error
	if err != nil {
		return translate(err, nil)
	}
	if existing > 0 {
		return domain.ErrAlreadyExists
	}
	return translate(r.db.WithContext(ctx).Create(item).Error, nil)
}

func (r *itemStore) ApplyDelta(ctx context.Context, p domain.PartitionKey, itemID string, delta decimal.Decimal) (item *domain.Item, before decimal.Decimal, err error) {
	ctx, span := startSpan(ctx, "items.ApplyDelta", p,
		attribute.String("item.id", itemID),
		attribute.String("stock.delta", delta.String()),
	)
	defer func() { endSpan(span, err) }()

	item, err = r.lock(ctx, p, itemID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	before = item.AvailableStock
	var next decimal.Decimal
	if delta.IsPositive() {
		next, _ = domain.ClampSubtract(before, delta)
	} else {
		next = before.Add(delta.Abs())
	}

	err = r.db.WithContext(ctx).Model(&domain.Item{}).
		Where("partition_key = ? AND id = ?", p, itemID).
		Update("available_stock", next).Error
	if err != nil {
		return nil, decimal.Zero, translate(err, nil)
	}

	item.AvailableStock = next
	span.SetAttributes(
		attribute.String("stock.before", before.String()),
		attribute.String("stock.after", next.String()),
	)
	return item, before, nil
}

func (r *itemStore) SetTotalStock(ctx context.Context, p domain.PartitionKey, itemID string, total decimal.Decimal) (item *domain.Item, err error) {
	ctx, span := startSpan(ctx, "items.SetTotalStock", p, attribute.String("item.id", itemID))
	defer func() { endSpan(span, err) }()

	if total.IsNegative() {
		return nil, domain.ErrInvalidStock
	}
	item, err = r.lock(ctx, p, itemID)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Model(&domain.Item{}).
		Where("partition_key = ? AND id = ?", p, itemID).
		Update("total_stock", total).Error
	if err != nil {
		return nil, translate(err, nil)
	}
	item.TotalStock = total
	return item, nil
}

func (r *itemStore) SetPrice(ctx context.Context, p domain.PartitionKey, itemID string, price decimal.Decimal) (item *domain.Item, err error) {
	ctx, span := startSpan(ctx, "items.SetPrice", p, attribute.String("item.id", itemID))
	defer func() { endSpan(span, err) }()

	if price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}
	item, err = r.lock(ctx, p, itemID)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Model(&domain.Item{}).
		Where("partition_key = ? AND id = ?", p, itemID).
		Update("price_per_unit", price).Error
	if err != nil {
		return nil, translate(err, nil)
	}
	item.PricePerUnit = price
	return item, nil
}

func (r *itemStore) Delete(ctx context.Context, p domain.PartitionKey, itemID string) (err error) {
	ctx, span := startSpan(ctx, "items.Delete", p, attribute.String("item.id", itemID))
	defer func() { endSpan(span, err) }()

	res := r.db.WithContext(ctx).
		Where("partition_key = ? AND id = ?", p, itemID).
		Delete(&domain.Item{})
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}
