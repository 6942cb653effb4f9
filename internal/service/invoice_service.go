package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"invoicely/internal/model"
	"invoicely/internal/repository"
	"invoicely/pkg/ghphone"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Live-update event names. Each event carries the full invoice snapshot
// so subscribers can apply last-writer-wins by id.
const (
	EventInvoiceCreated = "invoice.created"
	EventInvoiceUpdated = "invoice.updated"
	EventInvoiceDeleted = "invoice.deleted"
)

// InvoiceEventPublisher fans an invoice change out to the owner's live
// subscribers. Publishing happens only after the database has confirmed
// the mutation.
type InvoiceEventPublisher interface {
	PublishInvoiceEvent(userID uuid.UUID, event string, invoice model.Invoice)
}

// --- DTOs ---

type InvoiceItemRequest struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"` // decimal string, unparseable input coerces to 0
	Rate        string `json:"rate"`     // decimal string, same coercion
}

type CreateInvoiceRequest struct {
	CustomerName  string               `json:"customer_name" binding:"required"`
	CustomerPhone string               `json:"customer_phone" binding:"required"`
	Items         []InvoiceItemRequest `json:"items" binding:"required,min=1"`
	Tax           string               `json:"tax"`
	Discount      string               `json:"discount"`
	Notes         string               `json:"notes"`
}

// UpdateInvoiceRequest patches a persisted invoice. Nil fields are left
// untouched. Changing items, tax or discount recomputes both totals.
type UpdateInvoiceRequest struct {
	CustomerName  *string               `json:"customer_name"`
	CustomerPhone *string               `json:"customer_phone"`
	Items         *[]InvoiceItemRequest `json:"items"`
	Tax           *string               `json:"tax"`
	Discount      *string               `json:"discount"`
	Status        *string               `json:"status"`
	Notes         *string               `json:"notes"`
}

type InvoiceFilter struct {
	Search string
	Status string // draft, sent, paid, overdue, or "all"/empty
	Page   int
	Limit  int
}

type InvoiceItemResponse struct {
	ID          string `json:"id"`
	Position    int    `json:"position"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Rate        string `json:"rate"`
	Amount      string `json:"amount"` // derived, quantity * rate
}

type InvoiceResponse struct {
	ID            string                `json:"id"`
	CustomerName  string                `json:"customer_name"`
	CustomerPhone string                `json:"customer_phone"`
	Items         []InvoiceItemResponse `json:"items"`
	Tax           string                `json:"tax"`
	Discount      string                `json:"discount"`
	Subtotal      string                `json:"subtotal"`
	TotalAmount   string                `json:"total_amount"`
	Currency      string                `json:"currency"`
	Status        string                `json:"status"`
	Notes         string                `json:"notes"`
	CreatedAt     string                `json:"created_at"`
	UpdatedAt     string                `json:"updated_at"`
}

type StatsResponse struct {
	Total   int    `json:"total"`
	Paid    string `json:"paid"`
	Pending string `json:"pending"`
	Overdue int    `json:"overdue"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, userID uuid.UUID, req CreateInvoiceRequest) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string, userID uuid.UUID) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, userID uuid.UUID, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	GetStats(ctx context.Context, userID uuid.UUID) (StatsResponse, error)
	UpdateInvoice(ctx context.Context, id string, userID uuid.UUID, req UpdateInvoiceRequest) (InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string, userID uuid.UUID) error
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	txManager   repository.TransactionManager
	publisher   InvoiceEventPublisher
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	txManager repository.TransactionManager,
	publisher InvoiceEventPublisher,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		txManager:   txManager,
		publisher:   publisher,
	}
}

// --- Implementation ---

// CreateInvoice validates the submission, recomputes both totals from the
// items plus tax minus discount, and persists the invoice as a draft.
// Client-sent totals are never trusted. Validation failure means no
// repository call is made at all.
func (s *invoiceService) CreateInvoice(ctx context.Context, userID uuid.UUID, req CreateInvoiceRequest) (InvoiceResponse, error) {
	items, tax, discount, err := buildItems(req.CustomerPhone, req.Items, req.Tax, req.Discount)
	if err != nil {
		return InvoiceResponse{}, err
	}

	subtotal := sumItems(items)
	invoice := model.Invoice{
		UserID:        userID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Items:         items,
		Tax:           tax,
		Discount:      discount,
		Subtotal:      subtotal,
		TotalAmount:   subtotal.Add(tax).Sub(discount),
		Currency:      model.DefaultCurrency,
		Status:        model.StatusDraft,
		Notes:         req.Notes,
	}

	if err := s.invoiceRepo.Create(ctx, &invoice); err != nil {
		return InvoiceResponse{}, WrapError(KindPersistence, err, "failed to create invoice")
	}

	s.publish(userID, EventInvoiceCreated, invoice)
	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string, userID uuid.UUID) (InvoiceResponse, error) {
	invoice, err := s.findOwned(ctx, id, userID)
	if err != nil {
		return InvoiceResponse{}, err
	}
	return toInvoiceResponse(*invoice), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, userID uuid.UUID, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	invoices, total, err := s.invoiceRepo.List(ctx, userID, repository.InvoiceListFilter{
		Search: filter.Search,
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, 0, WrapError(KindPersistence, err, "failed to fetch invoices")
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv))
	}
	return result, total, nil
}

// GetStats folds over the full unfiltered set on every call; statistics
// are never maintained incrementally.
func (s *invoiceService) GetStats(ctx context.Context, userID uuid.UUID) (StatsResponse, error) {
	invoices, err := s.invoiceRepo.ListAll(ctx, userID)
	if err != nil {
		return StatsResponse{}, WrapError(KindPersistence, err, "failed to fetch invoices")
	}
	stats := ComputeStats(invoices)
	return StatsResponse{
		Total:   stats.Total,
		Paid:    stats.Paid.StringFixed(2),
		Pending: stats.Pending.StringFixed(2),
		Overdue: stats.Overdue,
	}, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, userID uuid.UUID, req UpdateInvoiceRequest) (InvoiceResponse, error) {
	invoice, err := s.findOwned(ctx, id, userID)
	if err != nil {
		return InvoiceResponse{}, err
	}

	if req.CustomerPhone != nil && !ghphone.Valid(*req.CustomerPhone) {
		return InvoiceResponse{}, NewError(KindValidation, "please enter a valid Ghana phone number")
	}
	if req.Status != nil && !validStatus(*req.Status) {
		return InvoiceResponse{}, NewError(KindValidation, "invalid status: must be draft, sent, paid, or overdue")
	}

	if req.CustomerName != nil {
		invoice.CustomerName = *req.CustomerName
	}
	if req.CustomerPhone != nil {
		invoice.CustomerPhone = *req.CustomerPhone
	}
	if req.Status != nil {
		invoice.Status = *req.Status
	}
	if req.Notes != nil {
		invoice.Notes = *req.Notes
	}
	if req.Tax != nil {
		invoice.Tax = CoerceAmount(*req.Tax)
	}
	if req.Discount != nil {
		invoice.Discount = CoerceAmount(*req.Discount)
	}

	itemsChanged := false
	if req.Items != nil {
		if len(*req.Items) == 0 {
			return InvoiceResponse{}, NewError(KindValidation, "an invoice needs at least one item")
		}
		newItems, buildErr := requestItems(invoice.ID, *req.Items)
		if buildErr != nil {
			return InvoiceResponse{}, buildErr
		}
		invoice.Items = newItems
		itemsChanged = true
	}

	// Totals can never go stale relative to items, tax, or discount.
	invoice.Subtotal = sumItems(invoice.Items)
	invoice.TotalAmount = invoice.Subtotal.Add(invoice.Tax).Sub(invoice.Discount)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if itemsChanged {
			if err := s.invoiceRepo.ReplaceItems(txCtx, invoice.ID, invoice.Items); err != nil {
				return err
			}
		}
		return s.invoiceRepo.Update(txCtx, invoice)
	})
	if err != nil {
		return InvoiceResponse{}, WrapError(KindPersistence, err, "failed to update invoice")
	}

	s.publish(userID, EventInvoiceUpdated, *invoice)
	return toInvoiceResponse(*invoice), nil
}

// DeleteInvoice removes the invoice permanently. The deleted event is
// published only after the database confirms; a failed delete leaves
// subscribers untouched.
func (s *invoiceService) DeleteInvoice(ctx context.Context, id string, userID uuid.UUID) error {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return NewError(KindValidation, "invalid invoice id")
	}

	invoice, err := s.invoiceRepo.FindByIDForUser(ctx, invoiceID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "invoice not found")
		}
		return WrapError(KindPersistence, err, "failed to fetch invoice")
	}

	if err := s.invoiceRepo.Delete(ctx, invoiceID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "invoice not found")
		}
		return WrapError(KindPersistence, err, "failed to delete invoice")
	}

	s.publish(userID, EventInvoiceDeleted, *invoice)
	return nil
}

// --- Helpers ---

func (s *invoiceService) findOwned(ctx context.Context, id string, userID uuid.UUID) (*model.Invoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, NewError(KindValidation, "invalid invoice id")
	}
	invoice, err := s.invoiceRepo.FindByIDForUser(ctx, invoiceID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "invoice not found")
		}
		return nil, WrapError(KindPersistence, err, "failed to fetch invoice")
	}
	return invoice, nil
}

func (s *invoiceService) publish(userID uuid.UUID, event string, invoice model.Invoice) {
	if s.publisher != nil {
		s.publisher.PublishInvoiceEvent(userID, event, invoice)
	}
}

// buildItems runs the submission-time validation shared with Draft, then
// converts the request lines. Coercion happens before validation, so a
// non-numeric rate fails the rate > 0 rule the same way "0" does.
func buildItems(phone string, reqItems []InvoiceItemRequest, tax, discount string) ([]model.InvoiceItem, decimal.Decimal, decimal.Decimal, error) {
	if len(reqItems) == 0 {
		return nil, decimal.Zero, decimal.Zero, NewError(KindValidation, "an invoice needs at least one item")
	}
	if !ghphone.Valid(phone) {
		return nil, decimal.Zero, decimal.Zero, NewError(KindValidation, "please enter a valid Ghana phone number")
	}

	items, err := requestItems(uuid.Nil, reqItems)
	if err != nil {
		return nil, decimal.Zero, decimal.Zero, err
	}
	return items, CoerceAmount(tax), CoerceAmount(discount), nil
}

func requestItems(invoiceID uuid.UUID, reqItems []InvoiceItemRequest) ([]model.InvoiceItem, error) {
	items := make([]model.InvoiceItem, 0, len(reqItems))
	for i, ri := range reqItems {
		rate := CoerceAmount(ri.Rate)
		if strings.TrimSpace(ri.Description) == "" || rate.LessThanOrEqual(decimal.Zero) {
			return nil, NewError(KindValidation, "please fill in all item details with valid rates")
		}
		items = append(items, model.InvoiceItem{
			InvoiceID:   invoiceID,
			Position:    i,
			Description: ri.Description,
			Quantity:    CoerceAmount(ri.Quantity),
			Rate:        rate,
		})
	}
	return items, nil
}

func sumItems(items []model.InvoiceItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount())
	}
	return sum
}

func validStatus(status string) bool {
	switch status {
	case model.StatusDraft, model.StatusSent, model.StatusPaid, model.StatusOverdue:
		return true
	}
	return false
}

// --- Mapping ---

func toInvoiceResponse(inv model.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, InvoiceItemResponse{
			ID:          item.ID.String(),
			Position:    item.Position,
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			Rate:        item.Rate.StringFixed(2),
			Amount:      item.Amount().StringFixed(2),
		})
	}
	return InvoiceResponse{
		ID:            inv.ID.String(),
		CustomerName:  inv.CustomerName,
		CustomerPhone: inv.CustomerPhone,
		Items:         items,
		Tax:           inv.Tax.StringFixed(2),
		Discount:      inv.Discount.StringFixed(2),
		Subtotal:      inv.Subtotal.StringFixed(2),
		TotalAmount:   inv.TotalAmount.StringFixed(2),
		Currency:      inv.Currency,
		Status:        inv.Status,
		Notes:         inv.Notes,
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     inv.UpdatedAt.Format(time.RFC3339),
	}
}
