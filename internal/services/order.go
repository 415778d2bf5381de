package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dukapay/dukapay-gobackend/internal/apperrors"
	"github.com/dukapay/dukapay-gobackend/internal/models"
)

type OrderService struct {
	collection *mongo.Collection
	products   *ProductService
}

func NewOrderService(db *mongo.Database, products *ProductService) *OrderService {
	return &OrderService{collection: db.Collection("orders"), products: products}
}

// CartLine is one entry of the client-held cart submitted at checkout.
type CartLine struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrder snapshots the cart against the products collection. Prices
// and names come from the store, not the client, and the total is computed
// server-side.
func (s *OrderService) CreateOrder(ctx context.Context, userID primitive.ObjectID, lines []CartLine) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, apperrors.Validation("order has no items")
	}

	items := make([]models.OrderItem, 0, len(lines))
	total := 0.0
	for _, line := range lines {
		product, err := s.products.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product.CountInStock < line.Quantity {
			return nil, apperrors.Validation(fmt.Sprintf("insufficient stock for %s", product.Name))
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
		})
		total += product.Price * float64(line.Quantity)
	}

	order := &models.Order{
		ID:          primitive.NewObjectID(),
		OrderNumber: uuid.NewString(),
		UserID:      userID,
		Items:       items,
		Total:       total,
		Status:      models.OrderPlaced,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if _, err := s.collection.InsertOne(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Validation("invalid order id")
	}

	var order models.Order
	err = s.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// OrdersByUser returns a user's orders, newest first.
func (s *OrderService) OrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	cur, err := s.collection.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orders []models.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// OrderList returns all orders, newest first. Admin only at the handler.
func (s *OrderService) OrderList(ctx context.Context) ([]models.Order, error) {
	cur, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orders []models.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// UpdateOrderStatus moves an order to the given status.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.Validation("invalid order id")
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("order not found")
	}

	return nil
}
