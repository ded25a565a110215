package repository

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

type orderStore struct {
	db *gorm.DB
}

func (r *orderStore) Create(ctx context.Context, order *domain.Order) (err error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	ctx, span := startSpan(ctx, "orders.Create", order.PartitionKey, attribute.String("order.id", order.ID))
	defer func() { endSpan(span, err) }()

	if err = order.CheckTotal(); err != nil {
		return err
	}
	if order.Status == "" {
		order.Status = domain.StatusPending
	}
	if !order.Status.Valid() {
		return domain.ErrInvalidStatus
	}
	order.Version = 1
	return translate(r.db.WithContext(ctx).Create(order).Error, nil)
}

func (r *orderStore) Get(ctx context.Context, p domain.PartitionKey, orderID string) (order *domain.Order, err error) {
	ctx, span := startSpan(ctx, "orders.Get", p, attribute.String("order.id", orderID))
	defer func() { endSpan(span, err) }()

	return r.find(r.db.WithContext(ctx), p, orderID)
}

func (r *orderStore) GetForUpdate(ctx context.Context, p domain.PartitionKey, orderID string) (order *domain.Order, err error) {
	ctx, span := startSpan(ctx, "orders.GetForUpdate", p, attribute.String("order.id", orderID))
	defer func() { endSpan(span, err) }()

	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), p, orderID)
}

func (r *orderStore) find(db *gorm.DB, p domain.PartitionKey, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := db.Where("partition_key = ? AND id = ?", p, orderID).First(&order).Error
	if err != nil {
		return nil, translate(err, domain.ErrOrderNotFound)
	}
	return &order, nil
}

func (r *orderStore) Update(ctx context.Context, order *domain.Order) (err error) {
	ctx, span := startSpan(ctx, "orders.Update", order.PartitionKey,
		attribute.String("order.id", order.ID),
		attribute.Int("order.version", order.Version),
		attribute.String("order.total", order.Total.String()),
	)
	defer func() { endSpan(span, err) }()

	if err = order.CheckTotal(); err != nil {
		return err
	}
	if !order.Status.Valid() {
		return domain.ErrInvalidStatus
	}

	next := domain.Order{
		LineItems: order.LineItems,
		Total:     order.Total,
		Status:    order.Status,
		Version:   order.Version + 1,
	}
	res := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("partition_key = ? AND id = ? AND version = ?", order.PartitionKey, order.ID, order.Version).
		Select("line_items", "total", "status", "version", "updated_at").
		Updates(&next)
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		if _, err = r.find(r.db.WithContext(ctx), order.PartitionKey, order.ID); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	order.Version = next.Version
	return nil
}

func (r *orderStore) UpdateStatus(ctx context.Context, p domain.PartitionKey, orderID string, status domain.Status) (err error) {
	ctx, span := startSpan(ctx, "orders.UpdateStatus", p,
		attribute.String("order.id", orderID),
		attribute.String("order.status", string(status)),
	)
	defer func() { endSpan(span, err) }()

	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	res := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("partition_key = ? AND id = ?", p, orderID).
		Updates(map[string]any{
			"status":  status,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderStore) List(ctx context.Context, p domain.PartitionKey, after string, limit int) (orders []domain.Order, err error) {
	ctx, span := startSpan(ctx, "orders.List", p,
		attribute.String("query.after", after),
		attribute.Int("query.limit", limit),
	)
	defer func() { endSpan(span, err) }()

	q := r.db.WithContext(ctx).Where("partition_key = ?", p)
	if after != "" {
		q = q.Where("id > ?", after)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err = q.Order("id").Find(&orders).Error
	span.SetAttributes(attribute.Int("result.count", len(orders)))
	return orders, translate(err, nil)
}

func (r *orderStore) Count(ctx context.Context, p domain.PartitionKey) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Order{}).Where("partition_key = ?", p).Count(&count).Error
	return count, translate(err, nil)
}
