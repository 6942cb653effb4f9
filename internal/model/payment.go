package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentLink records one hosted payment page issued through the gateway
// for an invoice. Links are write-once; the gateway reference doubles as
// the lookup key for manual verification. There is no webhook
// reconciliation, so status updates stay manual.
type PaymentLink struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Invoice          Invoice         `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"-"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Reference        string          `gorm:"type:varchar(60);uniqueIndex;not null" json:"reference"` // INV-<id[:8]>-<epoch millis>
	AuthorizationURL string          `gorm:"type:text;not null" json:"authorization_url"`
	AccessCode       string          `gorm:"type:varchar(100)" json:"access_code"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency         string          `gorm:"type:varchar(3);not null;default:'GHS'" json:"currency"`
	Metadata         datatypes.JSON  `gorm:"type:jsonb" json:"metadata"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
