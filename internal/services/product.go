package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dukapay/dukapay-gobackend/internal/apperrors"
	"github.com/dukapay/dukapay-gobackend/internal/models"
)

type ProductService struct {
	collection *mongo.Collection
}

func NewProductService(db *mongo.Database) *ProductService {
	return &ProductService{collection: db.Collection("products")}
}

func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) (string, error) {
	product.ID = primitive.NewObjectID()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt

	result, err := s.collection.InsertOne(ctx, product)
	if err != nil {
		return "", err
	}

	return result.InsertedID.(primitive.ObjectID).Hex(), nil
}

// ProductList returns products, optionally filtered by category, with
// skip/limit pagination. A limit of 0 means no limit.
func (s *ProductService) ProductList(ctx context.Context, category string, skip, limit int64) ([]models.Product, error) {
	query := bson.M{}
	if category != "" {
		query["category"] = category
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var products []models.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Validation("invalid product id")
	}

	var product models.Product
	err = s.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFound("product not found")
	}
	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id string, update *models.Product) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.Validation("invalid product id")
	}

	set := bson.M{
		"name":           update.Name,
		"description":    update.Description,
		"price":          update.Price,
		"image":          update.Image,
		"category":       update.Category,
		"count_in_stock": update.CountInStock,
		"updated_at":     time.Now(),
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("product not found")
	}

	return nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) (string, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", apperrors.Validation("invalid product id")
	}

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return "", err
	}
	if result.DeletedCount == 0 {
		return "", apperrors.NotFound("product not found")
	}

	return id, nil
}
