package command

import (
	"context"
	"fmt"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

// UpdateStatusCommand represents the command to move an order to another status
type UpdateStatusCommand struct {
	Partition domain.PartitionKey
	OrderID   string
	Status    domain.Status
}

// UpdateStatusHandler handles update status command. Status is a plain
// field write: no stock moves and no total is recomputed.
type UpdateStatusHandler struct {
	deps Dependencies
}

// NewUpdateStatusHandler creates a new update status handler
func NewUpdateStatusHandler(deps Dependencies) *UpdateStatusHandler {
	return &UpdateStatusHandler{deps: deps.withDefaults()}
}

// Handle executes the update status command
func (h *UpdateStatusHandler) Handle(ctx context.Context, cmd UpdateStatusCommand) error {
	if err := requirePartition(cmd.Partition); err != nil {
		return err
	}
	if !cmd.Status.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, cmd.Status)
	}

	return h.deps.retry(ctx, "update_status", func() error {
		return h.deps.Ledger.Orders().UpdateStatus(ctx, cmd.Partition, cmd.OrderID, cmd.Status)
	})
}
