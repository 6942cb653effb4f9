package service

import (
	"context"
	"errors"

	"invoicely/internal/pdf"
	"invoicely/internal/repository"
	"invoicely/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExportService renders a user's invoice as a downloadable PDF.
type ExportService interface {
	RenderInvoicePDF(ctx context.Context, id string, userID uuid.UUID) (filename string, data []byte, err error)
}

type exportService struct {
	invoiceRepo repository.InvoiceRepository
	userRepo    repository.UserRepository
	store       storage.Storage
}

func NewExportService(
	invoiceRepo repository.InvoiceRepository,
	userRepo repository.UserRepository,
	store storage.Storage,
) ExportService {
	return &exportService{
		invoiceRepo: invoiceRepo,
		userRepo:    userRepo,
		store:       store,
	}
}

func (s *exportService) RenderInvoicePDF(ctx context.Context, id string, userID uuid.UUID) (string, []byte, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return "", nil, NewError(KindValidation, "invalid invoice id")
	}

	invoice, err := s.invoiceRepo.FindByIDForUser(ctx, invoiceID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, NewError(KindNotFound, "invoice not found")
		}
		return "", nil, WrapError(KindPersistence, err, "failed to fetch invoice")
	}

	owner, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", nil, NewError(KindNotFound, "user not found")
	}

	data, err := pdf.RenderInvoice(*invoice, *owner, LogoFilePath(s.store, *owner))
	if err != nil {
		return "", nil, WrapError(KindPersistence, err, "failed to generate pdf")
	}

	return pdf.Filename(*invoice), data, nil
}
