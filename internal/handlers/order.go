package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/dukapay/dukapay-gobackend/internal/models"
	"github.com/dukapay/dukapay-gobackend/internal/services"
)

type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{service: service, validate: validator.New()}
}

type createOrderRequest struct {
	Items []services.CartLine `json:"items" validate:"required,min=1,dive"`
}

// CreateOrder checks out the client-held cart for the authenticated user.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), user.ID, req.Items)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, order)
}

// GetOrder returns one order. Customers may only read their own orders.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	order, err := h.service.GetOrder(r.Context(), mux.Vars(r)["orderID"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if order.UserID != user.ID && user.Role != models.RoleAdmin {
		respondError(w, http.StatusForbidden, "not your order")
		return
	}

	respondSuccess(w, http.StatusOK, order)
}

// GetMyOrders lists the authenticated user's orders.
func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, err := h.service.OrdersByUser(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, orders)
}

// GetOrders lists all orders. Admin only.
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.OrderList(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, orders)
}

// MarkDelivered moves an order to delivered. Admin only.
func (h *OrderHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	if err := h.service.UpdateOrderStatus(r.Context(), mux.Vars(r)["orderID"], models.OrderDelivered); err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"message": "order delivered"})
}
