package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"invoicely/internal/model"
	"invoicely/internal/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Test doubles ---

type fakeGateway struct {
	initReq   *payment.InitializeRequest
	initErr   error
	verifyRef string
	verifyErr error

	// entered/proceed let a test hold a transaction open mid-flight.
	entered chan struct{}
	proceed chan struct{}
}

func (f *fakeGateway) InitializeTransaction(_ context.Context, req payment.InitializeRequest) (*payment.InitializeData, error) {
	f.initReq = &req
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.proceed
	}
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &payment.InitializeData{
		AuthorizationURL: "https://checkout.paystack.com/abc123",
		AccessCode:       "abc123",
		Reference:        req.Reference,
	}, nil
}

func (f *fakeGateway) VerifyTransaction(_ context.Context, reference string) (*payment.VerifyData, error) {
	f.verifyRef = reference
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &payment.VerifyData{
		Status:    "success",
		Reference: reference,
		Amount:    2600,
		Currency:  "GHS",
		Channel:   "mobile_money",
		PaidAt:    "2024-05-01T10:00:00.000Z",
	}, nil
}

type fakeUserRepo struct {
	users  map[uuid.UUID]*model.User
	tokens map[string]*model.RefreshToken

	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[uuid.UUID]*model.User),
		tokens: make(map[string]*model.RefreshToken),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) SaveRefreshToken(_ context.Context, token *model.RefreshToken) error {
	stored := *token
	f.tokens[token.Token] = &stored
	return nil
}

func (f *fakeUserRepo) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	rt, ok := f.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *rt
	return &copied, nil
}

func (f *fakeUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *fakeUserRepo) DeleteExpiredRefreshTokens(_ context.Context) error {
	for key, rt := range f.tokens {
		if time.Now().After(rt.ExpiresAt) {
			delete(f.tokens, key)
		}
	}
	return nil
}

type fakeLinkRepo struct {
	links map[string]*model.PaymentLink
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[string]*model.PaymentLink)}
}

func (f *fakeLinkRepo) Create(_ context.Context, link *model.PaymentLink) error {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	stored := *link
	f.links[link.Reference] = &stored
	return nil
}

func (f *fakeLinkRepo) FindByReference(_ context.Context, reference string) (*model.PaymentLink, error) {
	link, ok := f.links[reference]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *link
	return &copied, nil
}

func (f *fakeLinkRepo) ListForInvoice(_ context.Context, invoiceID, userID uuid.UUID) ([]model.PaymentLink, error) {
	var result []model.PaymentLink
	for _, link := range f.links {
		if link.InvoiceID == invoiceID && link.UserID == userID {
			result = append(result, *link)
		}
	}
	return result, nil
}

func newPaymentServiceTest(t *testing.T) (PaymentService, *fakeGateway, *fakeInvoiceRepo, *fakeLinkRepo, uuid.UUID, uuid.UUID) {
	t.Helper()

	gateway := &fakeGateway{}
	invoiceRepo := newFakeInvoiceRepo()
	userRepo := newFakeUserRepo()
	linkRepo := newFakeLinkRepo()

	owner := &model.User{Email: "owner@example.com", BusinessName: "Accra Designs", Phone: "0241234567"}
	require.NoError(t, userRepo.Create(context.Background(), owner))

	invoice := invoiceWith("Ama Mensah", model.StatusSent, 26)
	invoice.UserID = owner.ID
	invoice.Currency = model.DefaultCurrency
	require.NoError(t, invoiceRepo.Create(context.Background(), &invoice))

	svc := NewPaymentService(gateway, invoiceRepo, userRepo, linkRepo, "http://localhost:8080/payment/callback")
	return svc, gateway, invoiceRepo, linkRepo, invoice.ID, owner.ID
}

// --- Tests ---

func TestCreatePaymentLink(t *testing.T) {
	svc, gateway, _, linkRepo, invoiceID, userID := newPaymentServiceTest(t)

	res, err := svc.CreatePaymentLink(context.Background(), invoiceID.String(), userID)
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.paystack.com/abc123", res.AuthorizationURL)
	assert.Equal(t, "26.00", res.Amount)
	assert.Equal(t, "GHS", res.Currency)

	// Reference follows INV-<first 8 of invoice id>-<epoch millis>.
	pattern := regexp.MustCompile(`^INV-` + regexp.QuoteMeta(invoiceID.String()[:8]) + `-\d{13}$`)
	assert.Regexp(t, pattern, res.Reference)

	// The gateway saw minor units and the Ghana-first channel order.
	require.NotNil(t, gateway.initReq)
	assert.Equal(t, int64(2600), gateway.initReq.Amount)
	assert.Equal(t, "owner@example.com", gateway.initReq.Email)
	assert.Equal(t, []string{"mobile_money", "card", "bank_transfer"}, gateway.initReq.Channels)
	assert.Equal(t, invoiceID.String(), gateway.initReq.Metadata["invoice_id"])

	// The link was recorded for later verification.
	stored, err := linkRepo.FindByReference(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, invoiceID, stored.InvoiceID)
	assert.Equal(t, userID, stored.UserID)
}

func TestCreatePaymentLinkNotOwned(t *testing.T) {
	svc, _, _, _, invoiceID, _ := newPaymentServiceTest(t)

	_, err := svc.CreatePaymentLink(context.Background(), invoiceID.String(), uuid.New())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestCreatePaymentLinkGatewayFailure(t *testing.T) {
	svc, gateway, _, linkRepo, invoiceID, userID := newPaymentServiceTest(t)
	gateway.initErr = errors.New("paystack: service unavailable")

	_, err := svc.CreatePaymentLink(context.Background(), invoiceID.String(), userID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPayment))
	assert.Empty(t, linkRepo.links)
}

func TestCreatePaymentLinkInFlightGuard(t *testing.T) {
	svc, gateway, _, _, invoiceID, userID := newPaymentServiceTest(t)
	gateway.entered = make(chan struct{}, 1)
	gateway.proceed = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.CreatePaymentLink(context.Background(), invoiceID.String(), userID)
		firstDone <- err
	}()

	// Wait until the first request is inside the gateway call, then race a
	// second request for the same invoice against it.
	<-gateway.entered
	_, err := svc.CreatePaymentLink(context.Background(), invoiceID.String(), userID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))

	close(gateway.proceed)
	require.NoError(t, <-firstDone)

	// Once the first request finished, a new link may be created again.
	gateway.entered = nil
	_, err = svc.CreatePaymentLink(context.Background(), invoiceID.String(), userID)
	assert.NoError(t, err)
}

func TestVerifyPayment(t *testing.T) {
	svc, gateway, _, linkRepo, invoiceID, userID := newPaymentServiceTest(t)

	link := &model.PaymentLink{
		InvoiceID: invoiceID,
		UserID:    userID,
		Reference: "INV-abcd1234-1700000000000",
	}
	require.NoError(t, linkRepo.Create(context.Background(), link))

	res, err := svc.VerifyPayment(context.Background(), link.Reference, userID)
	require.NoError(t, err)

	assert.Equal(t, link.Reference, gateway.verifyRef)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "26.00", res.Amount) // minor units converted back
	assert.Equal(t, "mobile_money", res.Channel)
}

func TestVerifyPaymentForeignReference(t *testing.T) {
	svc, _, _, linkRepo, invoiceID, userID := newPaymentServiceTest(t)

	link := &model.PaymentLink{
		InvoiceID: invoiceID,
		UserID:    userID,
		Reference: "INV-abcd1234-1700000000000",
	}
	require.NoError(t, linkRepo.Create(context.Background(), link))

	// Another user cannot verify someone else's reference.
	_, err := svc.VerifyPayment(context.Background(), link.Reference, uuid.New())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))

	_, err = svc.VerifyPayment(context.Background(), "unknown-reference", userID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"26", 2600},
		{"26.50", 2650},
		{"0.01", 1},
		{"10.005", 1001}, // rounded, not truncated
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, minorUnits(CoerceAmount(tt.amount)), "amount %s", tt.amount)
	}
}
