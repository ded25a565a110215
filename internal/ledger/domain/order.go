package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order. Ledger logic does not depend
// on the order of the values.
type Status string

// Order statuses
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "inprogress"
	StatusPacked     Status = "packed"
	StatusBillSent   Status = "bill_sent"
	StatusDelivered  Status = "delivered"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusPacked, StatusBillSent, StatusDelivered:
		return true
	}
	return false
}

// LineItem is one billed line of an order. UnitPrice and Name are captured
// when the line is written so later price changes do not alter issued bills.
type LineItem struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// InferredUnitPrice returns subtotal / quantity, or zero for an empty line.
func (l LineItem) InferredUnitPrice() decimal.Decimal {
	if !l.UnitPrice.IsZero() {
		return l.UnitPrice
	}
	if l.Quantity.IsZero() {
		return decimal.Zero
	}
	return l.Subtotal.Div(l.Quantity)
}

// Order is a customer bill within one partition.
type Order struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	PartitionKey PartitionKey    `json:"partition" gorm:"size:16;not null;index"`
	CustomerRef  string          `json:"customer_ref" gorm:"index"`
	LineItems    []LineItem      `json:"line_items" gorm:"type:text;serializer:json"`
	Total        decimal.Decimal `json:"total" gorm:"type:numeric(20,2);not null"`
	Status       Status          `json:"status" gorm:"size:16;not null;default:'pending'"`
	Version      int             `json:"version" gorm:"not null;default:1"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (Order) TableName() string {
	return "orders"
}

// SumLines returns round2 of the sum of all line subtotals.
func SumLines(lines []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal)
	}
	return Round2(sum)
}

// RecomputeTotal sets Total from the line items.
func (o *Order) RecomputeTotal() {
	o.Total = SumLines(o.LineItems)
}

// CheckTotal asserts that Total equals the rounded sum of the line items.
func (o *Order) CheckTotal() error {
	if !o.Total.Equal(SumLines(o.LineItems)) {
		return ErrTotalMismatch
	}
	return nil
}

// Quantities maps item id to the summed quantity of the order's lines.
func (o *Order) Quantities() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(o.LineItems))
	for _, l := range o.LineItems {
		out[l.ItemID] = out[l.ItemID].Add(l.Quantity)
	}
	return out
}

// Line returns the first line for itemID.
func (o *Order) Line(itemID string) (LineItem, bool) {
	for _, l := range o.LineItems {
		if l.ItemID == itemID {
			return l, true
		}
	}
	return LineItem{}, false
}
