package ledger

import (
	"gorm.io/gorm"

	"github.com/tair/produce-ledger/config"
	"github.com/tair/produce-ledger/internal/ledger/delivery/http"
	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/metrics"
	"github.com/tair/produce-ledger/internal/ledger/partition"
	"github.com/tair/produce-ledger/internal/ledger/repository"
	"github.com/tair/produce-ledger/internal/ledger/usecase/command"
)

// ProvideStore provides the gorm-backed ledger store
func ProvideStore(db *gorm.DB) *repository.Store {
	return repository.NewStore(db)
}

// ProvideLedger exposes the store as the unit-of-work interface
func ProvideLedger(store *repository.Store) domain.Ledger {
	return store
}

// ProvidePinger exposes the store to the health check
func ProvidePinger(store *repository.Store) http.Pinger {
	return store
}

// ProvideResolver builds the date key resolver from the vendor settings
func ProvideResolver(cfg *config.Config) (*partition.Resolver, error) {
	return partition.NewResolver(partition.DefaultLegacyDates, cfg.Location())
}

// ProvideMetrics registers the ledger collectors with the default registry
func ProvideMetrics() *metrics.Metrics {
	return metrics.NewDefault()
}

// ProvideCommandConfig maps service configuration onto handler tuning
func ProvideCommandConfig(cfg *config.Config) command.Config {
	return command.Config{
		ConflictRetries: cfg.Ledger.ConflictRetries,
		RecalcChunkSize: cfg.Ledger.RecalcChunkSize,
	}
}
