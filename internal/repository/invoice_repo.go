package repository

import (
	"context"
	"strings"

	"invoicely/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceListFilter narrows a user's invoice listing. Search matches
// case-insensitively against customer_name or the invoice id; Status is
// an exact match ("" or "all" disables it). Both conditions must hold.
type InvoiceListFilter struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// InvoiceRepository defines data access for invoices. Every read and
// write is scoped to the owning user; there is no cross-user access path.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, userID uuid.UUID, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	ListAll(ctx context.Context, userID uuid.UUID) ([]model.Invoice, error)
	Update(ctx context.Context, invoice *model.Invoice) error
	ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&invoice, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, userID uuid.UUID, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Invoice{}).Where("user_id = ?", userID)
	query = applyInvoiceFilter(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	fetch := db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Where("user_id = ?", userID)
	fetch = applyInvoiceFilter(fetch, filter)
	if err := fetch.Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

// ListAll returns the full unfiltered set for one user, newest first.
// Stats are always folded over this set, not the filtered one.
func (r *invoiceRepository) ListAll(ctx context.Context, userID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := GetDB(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Omit("Items").Save(invoice).Error
}

// ReplaceItems swaps the full item set of an invoice. Used on edits so the
// stored rows always mirror the submitted ordering.
func (r *invoiceRepository) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("invoice_id = ?", invoiceID).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *invoiceRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result := GetDB(ctx, r.db).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Invoice{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func applyInvoiceFilter(query *gorm.DB, filter InvoiceListFilter) *gorm.DB {
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(customer_name) LIKE ? OR LOWER(id::text) LIKE ?", like, like)
	}
	if filter.Status != "" && filter.Status != "all" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}
