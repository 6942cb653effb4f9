package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"invoicely/internal/model"
	"invoicely/internal/payment"
	"invoicely/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentGateway is the slice of the Paystack client this service needs.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeData, error)
	VerifyTransaction(ctx context.Context, reference string) (*payment.VerifyData, error)
}

// --- DTOs ---

type PaymentLinkResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
}

type VerifyPaymentResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    string `json:"amount"` // major units
	Currency  string `json:"currency"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}

// --- Interface ---

type PaymentService interface {
	CreatePaymentLink(ctx context.Context, invoiceID string, userID uuid.UUID) (PaymentLinkResponse, error)
	VerifyPayment(ctx context.Context, reference string, userID uuid.UUID) (VerifyPaymentResponse, error)
}

type paymentService struct {
	gateway     PaymentGateway
	invoiceRepo repository.InvoiceRepository
	userRepo    repository.UserRepository
	linkRepo    repository.PaymentLinkRepository
	callbackURL string

	// inFlight guards against duplicate gateway transactions: a second
	// link request for the same invoice is refused while one is pending.
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func NewPaymentService(
	gateway PaymentGateway,
	invoiceRepo repository.InvoiceRepository,
	userRepo repository.UserRepository,
	linkRepo repository.PaymentLinkRepository,
	callbackURL string,
) PaymentService {
	return &paymentService{
		gateway:     gateway,
		invoiceRepo: invoiceRepo,
		userRepo:    userRepo,
		linkRepo:    linkRepo,
		callbackURL: callbackURL,
		inFlight:    make(map[uuid.UUID]struct{}),
	}
}

// --- Implementation ---

// CreatePaymentLink asks the gateway for a hosted payment page for the
// invoice total. The amount crosses the wire in minor units (pesewas) and
// the reference follows INV-<first 8 of invoice id>-<epoch millis>.
// Nothing is retried on failure.
func (s *paymentService) CreatePaymentLink(ctx context.Context, invoiceID string, userID uuid.UUID) (PaymentLinkResponse, error) {
	id, err := uuid.Parse(invoiceID)
	if err != nil {
		return PaymentLinkResponse{}, NewError(KindValidation, "invalid invoice id")
	}

	if !s.acquire(id) {
		return PaymentLinkResponse{}, NewError(KindConflict, "a payment link is already being created for this invoice")
	}
	defer s.release(id)

	invoice, err := s.invoiceRepo.FindByIDForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PaymentLinkResponse{}, NewError(KindNotFound, "invoice not found")
		}
		return PaymentLinkResponse{}, WrapError(KindPersistence, err, "failed to fetch invoice")
	}

	owner, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return PaymentLinkResponse{}, NewError(KindNotFound, "user not found")
	}

	reference := fmt.Sprintf("INV-%s-%d", invoice.ID.String()[:8], time.Now().UnixMilli())

	data, err := s.gateway.InitializeTransaction(ctx, payment.InitializeRequest{
		Email:       owner.Email,
		Amount:      minorUnits(invoice.TotalAmount),
		Currency:    invoice.Currency,
		Reference:   reference,
		CallbackURL: s.callbackURL,
		Metadata: map[string]string{
			"invoice_id":    invoice.ID.String(),
			"customer_name": invoice.CustomerName,
		},
		Channels: payment.DefaultChannels,
	})
	if err != nil {
		return PaymentLinkResponse{}, WrapError(KindPayment, err, "payment initialization failed")
	}

	metadata, _ := json.Marshal(map[string]string{
		"invoice_id":    invoice.ID.String(),
		"customer_name": invoice.CustomerName,
	})
	link := &model.PaymentLink{
		InvoiceID:        invoice.ID,
		UserID:           userID,
		Reference:        reference,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Amount:           invoice.TotalAmount,
		Currency:         invoice.Currency,
		Metadata:         metadata,
	}
	if err := s.linkRepo.Create(ctx, link); err != nil {
		return PaymentLinkResponse{}, WrapError(KindPersistence, err, "failed to record payment link")
	}

	return PaymentLinkResponse{
		Reference:        reference,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Amount:           invoice.TotalAmount.StringFixed(2),
		Currency:         invoice.Currency,
	}, nil
}

// VerifyPayment looks up a transaction by reference. The reference must
// belong to one of the requesting user's own payment links.
func (s *paymentService) VerifyPayment(ctx context.Context, reference string, userID uuid.UUID) (VerifyPaymentResponse, error) {
	link, err := s.linkRepo.FindByReference(ctx, reference)
	if err != nil || link.UserID != userID {
		return VerifyPaymentResponse{}, NewError(KindNotFound, "payment reference not found")
	}

	data, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return VerifyPaymentResponse{}, WrapError(KindPayment, err, "payment verification failed")
	}

	return VerifyPaymentResponse{
		Reference: data.Reference,
		Status:    data.Status,
		Amount:    decimal.NewFromInt(data.Amount).Div(decimal.NewFromInt(100)).StringFixed(2),
		Currency:  data.Currency,
		Channel:   data.Channel,
		PaidAt:    data.PaidAt,
	}, nil
}

// --- Helpers ---

func (s *paymentService) acquire(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *paymentService) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// minorUnits converts a major-unit amount to pesewas for the gateway.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
