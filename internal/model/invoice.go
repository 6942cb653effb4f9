package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice status constants. The stats layer treats status as an open
// string: anything outside these values only counts toward the total.
const (
	StatusDraft   = "draft"
	StatusSent    = "sent"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

// DefaultCurrency is fixed for the deployment. No conversion anywhere.
const DefaultCurrency = "GHS"

// Invoice is one bill issued by a user to a customer. Subtotal and
// TotalAmount are always recomputed from the items plus tax minus discount
// before persisting; they are never accepted from the client as-is.
// TotalAmount may legally go negative when the discount exceeds
// subtotal + tax.
type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	CustomerName  string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone string          `gorm:"type:varchar(20);not null" json:"customer_phone"`
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Tax           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax"`      // absolute amount, not a percentage
	Discount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount"` // absolute amount
	Subtotal      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Currency      string          `gorm:"type:varchar(3);not null;default:'GHS'" json:"currency"`
	Status        string          `gorm:"type:varchar(10);not null;default:'draft';index" json:"status"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// InvoiceItem is one billable row. Position preserves the insertion order
// of the form session. The row amount (quantity * rate) is never stored.
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Position    int             `gorm:"not null" json:"position"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:1" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"rate"`
}

// Amount is the derived row value.
func (it InvoiceItem) Amount() decimal.Decimal {
	return it.Quantity.Mul(it.Rate)
}

// InvoiceStats summarizes the full (unfiltered) invoice set of one user.
// Paid and Pending are money sums; Total and Overdue are counts.
type InvoiceStats struct {
	Total   int             `json:"total"`
	Paid    decimal.Decimal `json:"paid"`
	Pending decimal.Decimal `json:"pending"`
	Overdue int             `json:"overdue"`
}
