package repository

import (
	"context"

	"invoicely/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentLinkRepository interface {
	Create(ctx context.Context, link *model.PaymentLink) error
	FindByReference(ctx context.Context, reference string) (*model.PaymentLink, error)
	ListForInvoice(ctx context.Context, invoiceID, userID uuid.UUID) ([]model.PaymentLink, error)
}

type paymentLinkRepository struct {
	db *gorm.DB
}

func NewPaymentLinkRepository(db *gorm.DB) PaymentLinkRepository {
	return &paymentLinkRepository{db: db}
}

func (r *paymentLinkRepository) Create(ctx context.Context, link *model.PaymentLink) error {
	return GetDB(ctx, r.db).Create(link).Error
}

func (r *paymentLinkRepository) FindByReference(ctx context.Context, reference string) (*model.PaymentLink, error) {
	var link model.PaymentLink
	if err := GetDB(ctx, r.db).First(&link, "reference = ?", reference).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *paymentLinkRepository) ListForInvoice(ctx context.Context, invoiceID, userID uuid.UUID) ([]model.PaymentLink, error) {
	var links []model.PaymentLink
	err := GetDB(ctx, r.db).
		Where("invoice_id = ? AND user_id = ?", invoiceID, userID).
		Order("created_at desc").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}
