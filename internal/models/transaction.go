package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction lifecycle statuses. A transaction is created pending and moves
// exactly once to success or failed when the Daraja callback arrives.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Transaction represents one STK push payment attempt. The
// CheckoutRequestID is the sole correlation key between initiation and the
// asynchronous callback.
type Transaction struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PhoneNumber       string             `bson:"phone_number" json:"phoneNumber"`
	Amount            float64            `bson:"amount" json:"amount"`
	ProductName       string             `bson:"product_name" json:"productName"`
	Description       string             `bson:"description,omitempty" json:"description,omitempty"`
	Status            string             `bson:"status" json:"status"`
	MerchantRequestID string             `bson:"merchant_request_id" json:"merchantRequestId"`
	CheckoutRequestID string             `bson:"checkout_request_id" json:"checkoutRequestId"`
	ResultDesc        string             `bson:"result_desc,omitempty" json:"resultDesc,omitempty"`
	MpesaReceiptNo    string             `bson:"mpesa_receipt_no,omitempty" json:"mpesaReceiptNumber,omitempty"`
	TransactionDate   string             `bson:"transaction_date,omitempty" json:"transactionDate,omitempty"`
	AmountPaid        float64            `bson:"amount_paid,omitempty" json:"amountPaid,omitempty"`
	ReceiptPath       string             `bson:"receipt_path,omitempty" json:"receiptPath,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updatedAt"`
}
