package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/pkg/logger"
)

// CreateItemCommand represents the command to enter fresh stock
type CreateItemCommand struct {
	Partition    domain.PartitionKey
	ItemID       string
	Name         string
	UnitType     domain.UnitType
	PricePerUnit decimal.Decimal
	TotalStock   decimal.Decimal
	// AvailableStock defaults to TotalStock.
	AvailableStock *decimal.Decimal
	Category       string
}

// CreateItemHandler handles create item command
type CreateItemHandler struct {
	deps Dependencies
}

// NewCreateItemHandler creates a new create item handler
func NewCreateItemHandler(deps Dependencies) *CreateItemHandler {
	return &CreateItemHandler{deps: deps.withDefaults()}
}

// Handle executes the create item command
func (h *CreateItemHandler) Handle(ctx context.Context, cmd CreateItemCommand) (*domain.Item, error) {
	if err := requirePartition(cmd.Partition); err != nil {
		return nil, err
	}
	if cmd.UnitType == "" {
		cmd.UnitType = domain.UnitWeight
	}
	if cmd.Name == "" {
		cmd.Name = cmd.ItemID
	}
	item := &domain.Item{
		PartitionKey:   cmd.Partition,
		ID:             cmd.ItemID,
		Name:           cmd.Name,
		UnitType:       cmd.UnitType,
		PricePerUnit:   cmd.PricePerUnit,
		TotalStock:     cmd.TotalStock,
		AvailableStock: cmd.TotalStock,
		Category:       cmd.Category,
	}
	if cmd.AvailableStock != nil {
		item.AvailableStock = *cmd.AvailableStock
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	err := h.deps.retry(ctx, "create_item", func() error {
		return h.deps.Ledger.InTx(ctx, func(tx domain.Stores) error {
			if err := tx.Items().Create(ctx, item); err != nil {
				return err
			}
			return tx.Mirror().Sync(ctx, item)
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("partition", cmd.Partition.String()).
		Str("item_id", item.ID).
		Str("total_stock", item.TotalStock.String()).
		Msg("Item created")
	h.deps.committed(ctx, cmd.Partition, nil)
	return item, nil
}

// ImportCatalogCommand copies item definitions from one partition to another.
type ImportCatalogCommand struct {
	From domain.PartitionKey
	To   domain.PartitionKey
	// Stock overrides the opening stock per item id.
	Stock map[string]decimal.Decimal
}

// ImportReport lists what an import created and what it left alone.
type ImportReport struct {
	From     domain.PartitionKey `json:"from"`
	To       domain.PartitionKey `json:"to"`
	Imported []string            `json:"imported"`
	Skipped  []string            `json:"skipped"`
}

// ImportCatalogHandler handles import catalog command
type ImportCatalogHandler struct {
	deps Dependencies
}

// NewImportCatalogHandler creates a new import catalog handler
func NewImportCatalogHandler(deps Dependencies) *ImportCatalogHandler {
	return &ImportCatalogHandler{deps: deps.withDefaults()}
}

// Handle executes the import. Items already present in the target keep their
// stock; the source partition is only read.
func (h *ImportCatalogHandler) Handle(ctx context.Context, cmd ImportCatalogCommand) (*ImportReport, error) {
	if cmd.From == "" || cmd.To == "" || cmd.From == cmd.To {
		return nil, domain.ErrInvalidPartition
	}
	for _, s := range cmd.Stock {
		if s.IsNegative() {
			return nil, domain.ErrInvalidStock
		}
	}

	source, err := h.deps.Ledger.Items().List(ctx, cmd.From)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog of %s: %w", cmd.From, err)
	}
	if len(source) == 0 {
		return nil, domain.ErrPartitionNotFound
	}

	var report *ImportReport
	err = h.deps.retry(ctx, "import_catalog", func() error {
		report = &ImportReport{From: cmd.From, To: cmd.To, Imported: []string{}, Skipped: []string{}}
		return h.deps.Ledger.InTx(ctx, func(tx domain.Stores) error {
			for _, src := range source {
				_, err := tx.Items().Get(ctx, cmd.To, src.ID)
				if err == nil {
					report.Skipped = append(report.Skipped, src.ID)
					continue
				}
				if !errors.Is(err, domain.ErrItemNotFound) {
					return err
				}

				stock := src.TotalStock
				if override, ok := cmd.Stock[src.ID]; ok {
					stock = override
				}
				item := &domain.Item{
					PartitionKey:   cmd.To,
					ID:             src.ID,
					Name:           src.Name,
					UnitType:       src.UnitType,
					PricePerUnit:   src.PricePerUnit,
					TotalStock:     stock,
					AvailableStock: stock,
					Category:       src.Category,
				}
				if err := tx.Items().Create(ctx, item); err != nil {
					return fmt.Errorf("item %q: %w", src.ID, err)
				}
				if err := tx.Mirror().Sync(ctx, item); err != nil {
					return err
				}
				report.Imported = append(report.Imported, src.ID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("from", cmd.From.String()).
		Str("to", cmd.To.String()).
		Int("imported", len(report.Imported)).
		Int("skipped", len(report.Skipped)).
		Msg("Catalog imported")
	h.deps.committed(ctx, cmd.To, nil)
	return report, nil
}

// CorrectStockCommand is an admin stock correction. TotalStock is written as
// given; AvailableDelta, if set, is added to available stock in the same unit.
// Without it available stock is left untouched.
type CorrectStockCommand struct {
	Partition      domain.PartitionKey
	ItemID         string
	TotalStock     decimal.Decimal
	AvailableDelta *decimal.Decimal
}

// CorrectStockHandler handles correct stock command
type CorrectStockHandler struct {
	deps Dependencies
}

// NewCorrectStockHandler creates a new correct stock handler
func NewCorrectStockHandler(deps Dependencies) *CorrectStockHandler {
	return &CorrectStockHandler{deps: deps.withDefaults()}
}

// Handle executes the correct stock command
func (h *CorrectStockHandler) Handle(ctx context.Context, cmd CorrectStockCommand) (*domain.Item, error) {
	if err := requirePartition(cmd.Partition); err != nil {
		return nil, err
	}
	if cmd.TotalStock.IsNegative() {
		return nil, domain.ErrInvalidStock
	}

	var item *domain.Item
	err := h.deps.retry(ctx, "correct_stock", func() error {
		return h.deps.Ledger.InTx(ctx, func(tx domain.Stores) error {
			var err error
			item, err = tx.Items().SetTotalStock(ctx, cmd.Partition, cmd.ItemID, cmd.TotalStock)
			if err != nil {
				return err
			}

			if cmd.AvailableDelta != nil && !cmd.AvailableDelta.IsZero() {
				// a positive correction returns stock, which is a negative ledger delta
				move, err := moveStock(ctx, tx, cmd.Partition, cmd.ItemID, cmd.AvailableDelta.Neg(), domain.ReasonStockCorrection, "admin")
				if err != nil {
					return err
				}
				item = move.item
			} else if err := tx.Mirror().Sync(ctx, item); err != nil {
				return err
			}

			if item.AvailableStock.GreaterThan(item.TotalStock) {
				return fmt.Errorf("%w: available %s exceeds total %s",
					domain.ErrInvalidStock, item.AvailableStock, item.TotalStock)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("partition", cmd.Partition.String()).
		Str("item_id", cmd.ItemID).
		Str("total_stock", item.TotalStock.String()).
		Str("available_stock", item.AvailableStock.String()).
		Msg("Stock corrected")
	h.deps.committed(ctx, cmd.Partition, &domain.LedgerEvent{
		EventType: domain.EventTypeStockCorrected,
		ItemID:    cmd.ItemID,
	})
	return item, nil
}

// SetPriceCommand changes the live unit price of an item. Issued bills keep
// their captured prices until RecalculateBills is run.
type SetPriceCommand struct {
	Partition    domain.PartitionKey
	ItemID       string
	PricePerUnit decimal.Decimal
}

// SetPriceHandler handles set price command
type SetPriceHandler struct {
	deps Dependencies
}

// NewSetPriceHandler creates a new set price handler
func NewSetPriceHandler(deps Dependencies) *SetPriceHandler {
	return &SetPriceHandler{deps: deps.withDefaults()}
}

// Handle executes the set price command
func (h *SetPriceHandler) Handle(ctx context.Context, cmd SetPriceCommand) (*domain.Item, error) {
	if err := requirePartition(cmd.Partition); err != nil {
		return nil, err
	}
	if cmd.PricePerUnit.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}

	var item *domain.Item
	err := h.deps.retry(ctx, "set_price", func() error {
		return h.deps.Ledger.InTx(ctx, func(tx domain.Stores) error {
			var err error
			item, err = tx.Items().SetPrice(ctx, cmd.Partition, cmd.ItemID, cmd.PricePerUnit)
			if err != nil {
				return err
			}
			return tx.Mirror().Sync(ctx, item)
		})
	})
	if err != nil {
		return nil, err
	}

	h.deps.committed(ctx, cmd.Partition, nil)
	return item, nil
}

// DeleteItemCommand represents the command to delete an item
type DeleteItemCommand struct {
	Partition domain.PartitionKey
	ItemID    string
}

// DeleteItemHandler handles delete item command
type DeleteItemHandler struct {
	deps Dependencies
}

// NewDeleteItemHandler creates a new delete item handler
func NewDeleteItemHandler(deps Dependencies) *DeleteItemHandler {
	return &DeleteItemHandler{deps: deps.withDefaults()}
}

// Handle removes the item and its mirror entry together.
func (h *DeleteItemHandler) Handle(ctx context.Context, cmd DeleteItemCommand) error {
	if err := requirePartition(cmd.Partition); err != nil {
		return err
	}

	err := h.deps.retry(ctx, "delete_item", func() error {
		return h.deps.Ledger.InTx(ctx, func(tx domain.Stores) error {
			if err := tx.Items().Delete(ctx, cmd.Partition, cmd.ItemID); err != nil {
				return err
			}
			return tx.Mirror().Delete(ctx, cmd.Partition, cmd.ItemID)
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx).
		Str("partition", cmd.Partition.String()).
		Str("item_id", cmd.ItemID).
		Msg("Item deleted")
	h.deps.committed(ctx, cmd.Partition, nil)
	return nil
}
