// Package visit models the append-only customer ledger.
package visit

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/validation"
)

// Type is the kind of monetized interaction a visit records.
type Type string

// Visit types.
const (
	TypeRental     Type = "rental"
	TypeLesson     Type = "lesson"
	TypeWaiverOnly Type = "waiver_only"
	TypePurchase   Type = "purchase"
	TypeCampground Type = "campground"
)

// ItemKind tags the shape of a line item.
type ItemKind string

// Line item kinds.
const (
	KindEquipment  ItemKind = "equipment"
	KindLesson     ItemKind = "lesson"
	KindProduct    ItemKind = "product"
	KindCampground ItemKind = "campground"
	KindWaiver     ItemKind = "waiver"
)

// Item is one line on a visit. Type is the item's sub-category
// ("Private Lesson", "Longboard"); for lesson visits it names the lesson.
type Item struct {
	Kind     ItemKind        `json:"kind" validate:"oneof=equipment lesson product campground waiver"`
	Name     string          `json:"name" validate:"required,max=200"`
	Type     string          `json:"type,omitempty" validate:"max=100"`
	Quantity int             `json:"quantity" validate:"gte=1"`
	Price    decimal.Decimal `json:"price"`
}

// Subtotal returns Price × Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Visit is one ledger entry. Visits are never updated or deleted.
type Visit struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id" validate:"required"`
	Date        time.Time       `json:"date"`
	Type        Type            `json:"type" validate:"oneof=rental lesson waiver_only purchase campground"`
	Items       []Item          `json:"items" validate:"dive"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       string          `json:"notes" validate:"max=2000"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate checks if the Visit has valid data.
// PRE: Visit struct is initialized
// POST: Returns a validation error if validation fails, nil otherwise
// INVARIANT: TotalAmount >= 0, item prices >= 0
func (v *Visit) Validate() error {
	if err := validation.Struct(v); err != nil {
		return err
	}
	if v.Date.IsZero() {
		return apperr.Validation("visit date must be set")
	}
	if v.TotalAmount.IsNegative() {
		return apperr.Validation("total amount cannot be negative")
	}
	for i, it := range v.Items {
		if it.Price.IsNegative() {
			return apperr.Validation("item %d price cannot be negative", i)
		}
	}
	return nil
}

// ItemsTotal sums the item subtotals, rounded to cents.
func (v *Visit) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range v.Items {
		total = total.Add(it.Subtotal())
	}
	return total.Round(2)
}

// Describe renders the transaction-history label for v.
func Describe(v Visit) string {
	switch v.Type {
	case TypeRental:
		return "Equipment Rental - " + countItems(len(v.Items))
	case TypeLesson:
		name := "Group Lesson"
		if len(v.Items) > 0 && v.Items[0].Type != "" {
			name = v.Items[0].Type
		}
		return "Surf Lesson - " + name
	case TypeWaiverOnly:
		return "Waiver Collection Only"
	case TypePurchase:
		return "Equipment Purchase - " + countItems(len(v.Items))
	case TypeCampground:
		return "Campground Stay"
	default:
		return "Transaction"
	}
}

func countItems(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}
