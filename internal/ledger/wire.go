//go:build wireinject
// +build wireinject

package ledger

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tair/produce-ledger/config"
	"github.com/tair/produce-ledger/internal/ledger/delivery/http"
	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/usecase/command"
)

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideStore,
	ProvideLedger,
	ProvidePinger,
)

var CommandSet = wire.NewSet(
	ProvideCommandConfig,
	wire.Struct(new(command.Dependencies), "*"),
)

// InitializeHTTPHandler initializes HTTP handler with all dependencies
func InitializeHTTPHandler(db *gorm.DB, cfg *config.Config, publisher domain.EventPublisher, cache domain.StockCache) (*http.LedgerHandler, error) {
	wire.Build(
		RepositorySet,
		CommandSet,
		ProvideResolver,
		ProvideMetrics,
		http.NewCommands,
		http.NewQueries,
		http.NewLedgerHandler,
	)
	return nil, nil
}

// InitializeRecalcHandler initializes the bill recalculation handler used by the worker
func InitializeRecalcHandler(db *gorm.DB, cfg *config.Config, publisher domain.EventPublisher, cache domain.StockCache) (*command.RecalculateBillsHandler, error) {
	wire.Build(
		ProvideStore,
		ProvideLedger,
		CommandSet,
		ProvideMetrics,
		command.NewRecalculateBillsHandler,
	)
	return nil, nil
}
