package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukapay/dukapay-gobackend/internal/apperrors"
	"github.com/dukapay/dukapay-gobackend/internal/models"
)

type fakeGateway struct {
	tokenErr error
	pushResp *STKPushResponse
	pushErr  error
}

func (g *fakeGateway) FetchAccessToken(ctx context.Context) (string, error) {
	if g.tokenErr != nil {
		return "", g.tokenErr
	}
	return "token", nil
}

func (g *fakeGateway) RequestSTKPush(ctx context.Context, token, phone string, amount float64, productName, description string) (*STKPushResponse, error) {
	if g.pushErr != nil {
		return nil, g.pushErr
	}
	return g.pushResp, nil
}

// fakeStore keeps transactions in a map keyed by checkout request ID.
type fakeStore struct {
	txns    map[string]*models.Transaction
	inserts int
	updates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{txns: make(map[string]*models.Transaction)}
}

func (s *fakeStore) Insert(ctx context.Context, txn *models.Transaction) error {
	s.inserts++
	copied := *txn
	s.txns[txn.CheckoutRequestID] = &copied
	return nil
}

func (s *fakeStore) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.Transaction, error) {
	txn, ok := s.txns[checkoutID]
	if !ok {
		return nil, apperrors.NotFound("transaction not found")
	}
	copied := *txn
	return &copied, nil
}

func (s *fakeStore) Update(ctx context.Context, txn *models.Transaction) error {
	s.updates++
	copied := *txn
	s.txns[txn.CheckoutRequestID] = &copied
	return nil
}

func (s *fakeStore) List(ctx context.Context, statusFilter string) ([]models.Transaction, error) {
	var txns []models.Transaction
	for _, txn := range s.txns {
		if statusFilter == "" || txn.Status == statusFilter {
			txns = append(txns, *txn)
		}
	}
	return txns, nil
}

type fakeReceipts struct {
	calls int
	err   error
}

func (r *fakeReceipts) GenerateReceipt(txn *models.Transaction) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return "/receipts/" + txn.CheckoutRequestID + ".pdf", nil
}

func successCallback(checkoutID string) *StkCallback {
	cb := &StkCallback{
		CheckoutRequestID: checkoutID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
	}
	cb.CallbackMetadata = &CallbackMetadata{
		Item: []CallbackItem{
			{Name: "Amount", Value: float64(500)},
			{Name: "MpesaReceiptNumber", Value: "R123"},
			{Name: "TransactionDate", Value: float64(20240815104523)},
			{Name: "PhoneNumber", Value: float64(254712345678)},
		},
	}
	return cb
}

func TestStartPayment(t *testing.T) {
	gateway := &fakeGateway{pushResp: &STKPushResponse{
		MerchantRequestID: "merchant-1",
		CheckoutRequestID: "checkout-1",
		ResponseCode:      "0",
	}}
	store := newFakeStore()
	service := NewPaymentService(gateway, store, &fakeReceipts{})

	txn, err := service.StartPayment(context.Background(), "0712345678", 500, "Widget", "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, txn.Status)
	assert.Equal(t, "merchant-1", txn.MerchantRequestID)
	assert.Equal(t, "checkout-1", txn.CheckoutRequestID)
	assert.Equal(t, "254712345678", txn.PhoneNumber)
	assert.Equal(t, 500.0, txn.Amount)

	persisted, err := store.FindByCheckoutID(context.Background(), "checkout-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, persisted.Status)
	assert.Equal(t, "merchant-1", persisted.MerchantRequestID)
}

func TestStartPayment_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		amount  float64
		product string
	}{
		{"missing phone", "", 500, "Widget"},
		{"missing amount", "0712345678", 0, "Widget"},
		{"negative amount", "0712345678", -5, "Widget"},
		{"missing product", "0712345678", 500, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			service := NewPaymentService(&fakeGateway{}, store, &fakeReceipts{})

			_, err := service.StartPayment(context.Background(), tt.phone, tt.amount, tt.product, "")
			require.Error(t, err)
			var ve *apperrors.ValidationError
			assert.ErrorAs(t, err, &ve)
			assert.Equal(t, "missing required fields", err.Error())
			assert.Zero(t, store.inserts, "no record should be persisted")
		})
	}
}

func TestStartPayment_GatewayDecline(t *testing.T) {
	gateway := &fakeGateway{pushErr: apperrors.Gateway("mpesa declined stk push")}
	store := newFakeStore()
	service := NewPaymentService(gateway, store, &fakeReceipts{})

	_, err := service.StartPayment(context.Background(), "0712345678", 500, "Widget", "")
	require.Error(t, err)
	var ge *apperrors.GatewayError
	assert.ErrorAs(t, err, &ge)
	assert.Zero(t, store.inserts, "declined pushes must not persist a record")
}

func TestHandleCallback_Success(t *testing.T) {
	store := newFakeStore()
	store.txns["checkout-1"] = &models.Transaction{
		PhoneNumber:       "254712345678",
		Amount:            500,
		ProductName:       "Widget",
		Status:            models.StatusPending,
		CheckoutRequestID: "checkout-1",
	}
	receipts := &fakeReceipts{}
	service := NewPaymentService(&fakeGateway{}, store, receipts)

	result, err := service.HandleCallback(context.Background(), successCallback("checkout-1"))
	require.NoError(t, err)

	txn := result.Transaction
	assert.Equal(t, models.StatusSuccess, txn.Status)
	assert.Equal(t, "R123", txn.MpesaReceiptNo)
	assert.Equal(t, 500.0, txn.AmountPaid)
	assert.Equal(t, "20240815104523", txn.TransactionDate)
	assert.Equal(t, "/receipts/checkout-1.pdf", txn.ReceiptPath)
	assert.Equal(t, "/receipts/checkout-1.pdf", result.ReceiptPath)
	assert.Equal(t, 1, receipts.calls)

	persisted, err := store.FindByCheckoutID(context.Background(), "checkout-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, persisted.Status)
	assert.Equal(t, "/receipts/checkout-1.pdf", persisted.ReceiptPath)
}

func TestHandleCallback_AmountFallsBackToRequested(t *testing.T) {
	store := newFakeStore()
	store.txns["checkout-1"] = &models.Transaction{
		Amount:            750,
		Status:            models.StatusPending,
		CheckoutRequestID: "checkout-1",
	}
	service := NewPaymentService(&fakeGateway{}, store, &fakeReceipts{})

	cb := successCallback("checkout-1")
	cb.CallbackMetadata.Item = []CallbackItem{
		{Name: "MpesaReceiptNumber", Value: "R456"},
	}

	result, err := service.HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	assert.Equal(t, 750.0, result.Transaction.AmountPaid)
}

func TestHandleCallback_Failed(t *testing.T) {
	store := newFakeStore()
	store.txns["checkout-1"] = &models.Transaction{
		Status:            models.StatusPending,
		CheckoutRequestID: "checkout-1",
	}
	receipts := &fakeReceipts{}
	service := NewPaymentService(&fakeGateway{}, store, receipts)

	cb := &StkCallback{
		CheckoutRequestID: "checkout-1",
		ResultCode:        1,
		ResultDesc:        "The balance is insufficient for the transaction",
	}
	result, err := service.HandleCallback(context.Background(), cb)
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, result.Transaction.Status)
	assert.Equal(t, "The balance is insufficient for the transaction", result.Transaction.ResultDesc)
	assert.Empty(t, result.ReceiptPath)
	assert.Zero(t, receipts.calls, "failed payments must not generate receipts")
}

func TestHandleCallback_UnknownCheckoutID(t *testing.T) {
	store := newFakeStore()
	service := NewPaymentService(&fakeGateway{}, store, &fakeReceipts{})

	_, err := service.HandleCallback(context.Background(), successCallback("missing"))
	require.Error(t, err)
	var nf *apperrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Zero(t, store.updates, "unknown callbacks must not mutate records")
}

func TestHandleCallback_ReceiptFailureLeavesRecordPending(t *testing.T) {
	store := newFakeStore()
	store.txns["checkout-1"] = &models.Transaction{
		Status:            models.StatusPending,
		CheckoutRequestID: "checkout-1",
	}
	receipts := &fakeReceipts{err: assert.AnError}
	service := NewPaymentService(&fakeGateway{}, store, receipts)

	_, err := service.HandleCallback(context.Background(), successCallback("checkout-1"))
	require.Error(t, err)

	persisted, err := store.FindByCheckoutID(context.Background(), "checkout-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, persisted.Status, "status update must not outlive a failed receipt")
}

// Duplicate delivery is not guarded against: the same callback simply runs
// finalization again and overwrites the record.
func TestHandleCallback_DuplicateDeliveryRerunsFinalization(t *testing.T) {
	store := newFakeStore()
	store.txns["checkout-1"] = &models.Transaction{
		Amount:            500,
		Status:            models.StatusPending,
		CheckoutRequestID: "checkout-1",
	}
	receipts := &fakeReceipts{}
	service := NewPaymentService(&fakeGateway{}, store, receipts)

	_, err := service.HandleCallback(context.Background(), successCallback("checkout-1"))
	require.NoError(t, err)
	_, err = service.HandleCallback(context.Background(), successCallback("checkout-1"))
	require.NoError(t, err)

	assert.Equal(t, 2, receipts.calls)
	assert.Equal(t, 2, store.updates)
}
