package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dukapay/dukapay-gobackend/internal/apperrors"
	"github.com/dukapay/dukapay-gobackend/internal/models"
)

// Gateway is the outbound surface of the payment provider used by the
// workflow. *MpesaGateway satisfies it; tests substitute a fake.
type Gateway interface {
	FetchAccessToken(ctx context.Context) (string, error)
	RequestSTKPush(ctx context.Context, token, phone string, amount float64, productName, description string) (*STKPushResponse, error)
}

// TransactionStore persists transaction records. The checkout request ID is
// the lookup key used by the callback path.
type TransactionStore interface {
	Insert(ctx context.Context, txn *models.Transaction) error
	FindByCheckoutID(ctx context.Context, checkoutID string) (*models.Transaction, error)
	Update(ctx context.Context, txn *models.Transaction) error
	List(ctx context.Context, statusFilter string) ([]models.Transaction, error)
}

// ReceiptGenerator renders a durable receipt for a successful transaction
// and returns the client-facing path of the artifact.
type ReceiptGenerator interface {
	GenerateReceipt(txn *models.Transaction) (string, error)
}

// MongoTransactionStore is the MongoDB-backed TransactionStore.
type MongoTransactionStore struct {
	collection *mongo.Collection
}

func NewMongoTransactionStore(db *mongo.Database) *MongoTransactionStore {
	return &MongoTransactionStore{collection: db.Collection("transactions")}
}

// EnsureIndexes creates the unique index on the callback correlation key.
func (s *MongoTransactionStore) EnsureIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.M{"checkout_request_id": 1},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.M{"status": 1, "created_at": -1}},
	}
	_, err := s.collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create transaction indexes: %v", err)
	}
	return nil
}

func (s *MongoTransactionStore) Insert(ctx context.Context, txn *models.Transaction) error {
	txn.ID = primitive.NewObjectID()
	txn.CreatedAt = time.Now()
	txn.UpdatedAt = txn.CreatedAt
	_, err := s.collection.InsertOne(ctx, txn)
	return err
}

func (s *MongoTransactionStore) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.collection.FindOne(ctx, bson.M{"checkout_request_id": checkoutID}).Decode(&txn)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFound("transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction: %v", err)
	}
	return &txn, nil
}

func (s *MongoTransactionStore) Update(ctx context.Context, txn *models.Transaction) error {
	txn.UpdatedAt = time.Now()
	_, err := s.collection.ReplaceOne(ctx, bson.M{"checkout_request_id": txn.CheckoutRequestID}, txn)
	return err
}

func (s *MongoTransactionStore) List(ctx context.Context, statusFilter string) ([]models.Transaction, error) {
	query := bson.M{}
	if statusFilter != "" {
		query["status"] = statusFilter
	}

	cur, err := s.collection.Find(ctx, query, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var txns []models.Transaction
	if err := cur.All(ctx, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

// PaymentService orchestrates the two halves of the payment lifecycle:
// initiation (StartPayment) and finalization (HandleCallback).
type PaymentService struct {
	gateway  Gateway
	store    TransactionStore
	receipts ReceiptGenerator
}

func NewPaymentService(gateway Gateway, store TransactionStore, receipts ReceiptGenerator) *PaymentService {
	return &PaymentService{gateway: gateway, store: store, receipts: receipts}
}

// StkCallback is the inner payload of a Daraja callback.
type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata"`
}

// CallbackMetadata carries the name/value items of a successful callback.
type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

// CallbackItem is one name/value metadata pair from a successful callback.
type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// CallbackResult is returned to the handler after finalization.
type CallbackResult struct {
	Transaction *models.Transaction
	ReceiptPath string
}

// StartPayment validates input, runs the two-step gateway flow and persists
// a pending record only after the provider accepts the push.
func (s *PaymentService) StartPayment(ctx context.Context, phoneNumber string, amount float64, productName, description string) (*models.Transaction, error) {
	if phoneNumber == "" || amount <= 0 || productName == "" {
		return nil, apperrors.Validation("missing required fields")
	}

	phone := NormalizePhone(phoneNumber)
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}

	token, err := s.gateway.FetchAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	push, err := s.gateway.RequestSTKPush(ctx, token, phone, amount, productName, description)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		PhoneNumber:       phone,
		Amount:            amount,
		ProductName:       productName,
		Description:       description,
		Status:            models.StatusPending,
		MerchantRequestID: push.MerchantRequestID,
		CheckoutRequestID: push.CheckoutRequestID,
	}
	if err := s.store.Insert(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to persist transaction: %v", err)
	}

	log.Printf("STK push accepted, checkout %s pending for %s", txn.CheckoutRequestID, phone)
	return txn, nil
}

// HandleCallback finalizes the transaction the provider reports on. The
// record moves to success or failed; on success the callback metadata is
// flattened by item name and a receipt is generated before the update is
// persisted. There is no guard against duplicate delivery: a repeated
// callback re-runs finalization and overwrites the record in place.
func (s *PaymentService) HandleCallback(ctx context.Context, cb *StkCallback) (*CallbackResult, error) {
	txn, err := s.store.FindByCheckoutID(ctx, cb.CheckoutRequestID)
	if err != nil {
		return nil, err
	}

	txn.ResultDesc = cb.ResultDesc

	if cb.ResultCode != 0 {
		txn.Status = models.StatusFailed
		if err := s.store.Update(ctx, txn); err != nil {
			return nil, fmt.Errorf("failed to persist transaction: %v", err)
		}
		log.Printf("Payment failed for checkout %s: %s", txn.CheckoutRequestID, cb.ResultDesc)
		return &CallbackResult{Transaction: txn}, nil
	}

	txn.Status = models.StatusSuccess
	txn.AmountPaid = txn.Amount

	receiptPath := ""
	if cb.CallbackMetadata != nil && len(cb.CallbackMetadata.Item) > 0 {
		meta := flattenMetadata(cb.CallbackMetadata.Item)
		if v, ok := meta["MpesaReceiptNumber"]; ok {
			txn.MpesaReceiptNo = fmt.Sprintf("%v", v)
		}
		if v, ok := meta["TransactionDate"]; ok {
			txn.TransactionDate = formatMetadataValue(v)
		}
		if v, ok := meta["Amount"]; ok {
			if amt, ok := v.(float64); ok {
				txn.AmountPaid = amt
			}
		}

		path, err := s.receipts.GenerateReceipt(txn)
		if err != nil {
			return nil, fmt.Errorf("failed to generate receipt: %v", err)
		}
		txn.ReceiptPath = path
		receiptPath = path
	}

	if err := s.store.Update(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to persist transaction: %v", err)
	}

	log.Printf("Payment succeeded for checkout %s, receipt %s", txn.CheckoutRequestID, txn.MpesaReceiptNo)
	return &CallbackResult{Transaction: txn, ReceiptPath: receiptPath}, nil
}

// ListTransactions returns transactions, newest first, optionally filtered
// by status.
func (s *PaymentService) ListTransactions(ctx context.Context, statusFilter string) ([]models.Transaction, error) {
	return s.store.List(ctx, statusFilter)
}

// GetTransaction looks up a single transaction by checkout request ID.
func (s *PaymentService) GetTransaction(ctx context.Context, checkoutID string) (*models.Transaction, error) {
	return s.store.FindByCheckoutID(ctx, checkoutID)
}

func flattenMetadata(items []CallbackItem) map[string]interface{} {
	meta := make(map[string]interface{}, len(items))
	for _, item := range items {
		meta[item.Name] = item.Value
	}
	return meta
}

// formatMetadataValue renders a metadata value as a string. Daraja sends
// TransactionDate as a number (20240815104523), which JSON decodes as
// float64 and would otherwise print in scientific notation.
func formatMetadataValue(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%v", v)
}
