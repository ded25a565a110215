package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

// Store is the gorm-backed ledger. Outside InTx each call runs on its own;
// inside InTx all stores share one database transaction.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new ledger store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the ledger tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Item{},
		&domain.MirrorEntry{},
		&domain.Order{},
		&domain.StockMovement{},
		&domain.BillAdjustment{},
	)
}

func (s *Store) Items() domain.InventoryStore { return &itemStore{db: s.db} }
func (s *Store) Mirror() domain.StockMirror { return &mirrorStore{db: s.db} }
func (s *Store) Orders() domain.OrderLedger { return &orderStore{db: s.db} }
func (s *Store) Movements() domain.MovementLog { return &movementStore{db: s.db} }
func (s *Store) Adjustments() domain.AdjustmentLog { return &adjustmentStore{db: s.db} }

// InTx runs fn inside one database transaction. Any error from fn, or from
// commit, rolls back every write fn made.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.Stores) error) (err error) {
	ctx, span := tracer.Start(ctx, "repository.InTx")
	defer func() { endSpan(span, err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
	return translate(err, nil)
}

// Ping checks database connectivity for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
