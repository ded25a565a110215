// Package ledgertest provides sqlite-backed ledger stores and seed helpers
// for package tests.
package ledgertest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/repository"
	"github.com/tair/produce-ledger/pkg/database"
)

var seq atomic.Int64

// Partition is the default day used by fixtures.
const Partition domain.PartitionKey = "2025-03-14"

// NewDB opens a private in-memory sqlite database with the ledger schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, t.Name())
	db, err := database.NewGormConnection(database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1)),
	})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewStore returns a ledger store over NewDB.
func NewStore(t testing.TB) *repository.Store {
	t.Helper()
	return repository.NewStore(NewDB(t))
}

// Dec parses s and fails the test on malformed input.
func Dec(t testing.TB, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// SeedItem creates a weight item with total == available == stock and a
// matching mirror entry.
func SeedItem(t testing.TB, ledger domain.Ledger, p domain.PartitionKey, id, stock, price string) *domain.Item {
	t.Helper()

	item := &domain.Item{
		PartitionKey:   p,
		ID:             id,
		Name:           id,
		UnitType:       domain.UnitWeight,
		PricePerUnit:   Dec(t, price),
		TotalStock:     Dec(t, stock),
		AvailableStock: Dec(t, stock),
		Category:       "vegetables",
	}
	err := ledger.InTx(context.Background(), func(tx domain.Stores) error {
		if err := tx.Items().Create(context.Background(), item); err != nil {
			return err
		}
		return tx.Mirror().Sync(context.Background(), item)
	})
	require.NoError(t, err)
	return item
}

// Available returns the stored available stock of an item.
func Available(t testing.TB, ledger domain.Ledger, p domain.PartitionKey, id string) decimal.Decimal {
	t.Helper()
	item, err := ledger.Items().Get(context.Background(), p, id)
	require.NoError(t, err)
	return item.AvailableStock
}

// MirrorAvailable returns the mirrored available stock of an item.
func MirrorAvailable(t testing.TB, ledger domain.Ledger, p domain.PartitionKey, id string) decimal.Decimal {
	t.Helper()
	entry, err := ledger.Mirror().Get(context.Background(), p, id)
	require.NoError(t, err)
	return entry.AvailableStock
}
