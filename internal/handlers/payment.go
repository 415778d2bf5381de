package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/dukapay/dukapay-gobackend/internal/services"
)

type PaymentHandler struct {
	service  *services.PaymentService
	validate *validator.Validate
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service, validate: validator.New()}
}

type initiatePaymentRequest struct {
	PhoneNumber string  `json:"phoneNumber" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	ProductName string  `json:"productName" validate:"required"`
	CustomDesc  string  `json:"customDesc"`
}

// stkCallbackEnvelope mirrors the nested shape Daraja posts to the callback
// URL: { Body: { stkCallback: {...} } }.
type stkCallbackEnvelope struct {
	Body struct {
		StkCallback *services.StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// InitiatePayment starts the STK push flow and returns the pending
// transaction record.
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	txn, err := h.service.StartPayment(r.Context(), req.PhoneNumber, req.Amount, req.ProductName, req.CustomDesc)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, txn)
}

// Callback receives the asynchronous result from the provider. The payment
// outcome itself does not affect the HTTP status: a failed payment is still
// acknowledged with 200. Only a malformed body or an unknown checkout ID is
// rejected.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var envelope stkCallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		respondError(w, http.StatusBadRequest, "invalid callback body")
		return
	}
	cb := envelope.Body.StkCallback
	if cb == nil || cb.CheckoutRequestID == "" {
		respondError(w, http.StatusBadRequest, "invalid callback body")
		return
	}

	result, err := h.service.HandleCallback(r.Context(), cb)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"success": true,
		"message": "callback processed",
	}
	if result.ReceiptPath != "" {
		response["receiptPath"] = result.ReceiptPath
	}
	respondJSON(w, http.StatusOK, response)
}

// GetTransactions lists transactions, optionally filtered by ?status=.
func (h *PaymentHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.service.ListTransactions(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, txns)
}

// GetTransaction fetches a single transaction by checkout request ID.
func (h *PaymentHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	checkoutID := mux.Vars(r)["checkoutID"]
	txn, err := h.service.GetTransaction(r.Context(), checkoutID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, txn)
}
