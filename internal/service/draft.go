package service

import (
	"strings"

	"invoicely/pkg/ghphone"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DraftItem is one editable line of a draft invoice. The id is stable for
// the lifetime of the form session; it is not the persisted row identity.
type DraftItem struct {
	ID          uuid.UUID
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
}

// Amount is the derived line value, quantity * rate.
func (it DraftItem) Amount() decimal.Decimal {
	return it.Quantity.Mul(it.Rate)
}

// Draft is the in-memory invoice aggregate backing a form session. It is
// mutated freely before submission; totals are derived on demand and are
// never stored stale. Validation runs only at submit time.
type Draft struct {
	CustomerName  string
	CustomerPhone string
	Items         []DraftItem
	Tax           decimal.Decimal
	Discount      decimal.Decimal
	Notes         string
}

// NewDraft starts a draft with a single empty item, quantity 1 and rate 0,
// mirroring a fresh invoice form.
func NewDraft() *Draft {
	d := &Draft{}
	d.AddItem()
	return d
}

// AddItem appends a line with a fresh id, quantity 1 and rate 0. There is
// no upper bound on item count.
func (d *Draft) AddItem() DraftItem {
	item := DraftItem{
		ID:       uuid.New(),
		Quantity: decimal.NewFromInt(1),
		Rate:     decimal.Zero,
	}
	d.Items = append(d.Items, item)
	return item
}

// RemoveItem deletes the line with the given id. The last remaining item
// can never be removed; the call is refused and false is returned.
func (d *Draft) RemoveItem(id uuid.UUID) bool {
	if len(d.Items) <= 1 {
		return false
	}
	for i, item := range d.Items {
		if item.ID == id {
			d.Items = append(d.Items[:i], d.Items[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateItem sets one field of a line. Numeric fields go through
// CoerceAmount, so non-numeric input silently becomes 0 rather than being
// rejected. Returns false when no line has the given id.
func (d *Draft) UpdateItem(id uuid.UUID, field, value string) bool {
	for i := range d.Items {
		if d.Items[i].ID != id {
			continue
		}
		switch field {
		case "description":
			d.Items[i].Description = value
		case "quantity":
			d.Items[i].Quantity = CoerceAmount(value)
		case "rate":
			d.Items[i].Rate = CoerceAmount(value)
		}
		return true
	}
	return false
}

// SetTax applies the numeric coercion policy to the tax input.
func (d *Draft) SetTax(value string) {
	d.Tax = CoerceAmount(value)
}

// SetDiscount applies the numeric coercion policy to the discount input.
func (d *Draft) SetDiscount(value string) {
	d.Discount = CoerceAmount(value)
}

// Subtotal sums quantity*rate over all lines. Pure; safe mid-edit.
func (d *Draft) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range d.Items {
		sum = sum.Add(item.Amount())
	}
	return sum
}

// Total is subtotal + tax - discount. Not clamped: a discount larger than
// subtotal + tax yields a negative total.
func (d *Draft) Total() decimal.Decimal {
	return d.Subtotal().Add(d.Tax).Sub(d.Discount)
}

// Validate checks the draft for submission. The phone must be a valid
// Ghana mobile number and every line needs a description and a positive
// rate. Runs only when submitting, never per keystroke.
func (d *Draft) Validate() error {
	if !ghphone.Valid(d.CustomerPhone) {
		return NewError(KindValidation, "please enter a valid Ghana phone number")
	}
	for _, item := range d.Items {
		if strings.TrimSpace(item.Description) == "" || item.Rate.LessThanOrEqual(decimal.Zero) {
			return NewError(KindValidation, "please fill in all item details with valid rates")
		}
	}
	return nil
}

// Payload validates the draft and produces the create request with totals
// recomputed at the moment of submission.
func (d *Draft) Payload() (CreateInvoiceRequest, error) {
	if err := d.Validate(); err != nil {
		return CreateInvoiceRequest{}, err
	}
	items := make([]InvoiceItemRequest, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, InvoiceItemRequest{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			Rate:        item.Rate.String(),
		})
	}
	return CreateInvoiceRequest{
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		Items:         items,
		Tax:           d.Tax.String(),
		Discount:      d.Discount.String(),
		Notes:         d.Notes,
	}, nil
}

// CoerceAmount parses a decimal input field. Unparseable input (including
// the empty string) becomes zero. Preserved behavior from the form: bad
// numbers are coerced, not rejected.
func CoerceAmount(value string) decimal.Decimal {
	parsed, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return parsed
}
