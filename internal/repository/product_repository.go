package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kriyptor/Market-Place-App/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const productsCollection = "products"

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{collection: db.Collection(productsCollection)}
}

func (m *mongoProductRepository) List(ctx context.Context, page domain.Page) (*domain.ProductList, error) {
	total, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]*domain.Product, 0, page.Limit)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}

	return &domain.ProductList{Products: products, Total: total}, nil
}

func (m *mongoProductRepository) Get(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	var p domain.Product
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &p, nil
}

func (m *mongoProductRepository) Create(ctx context.Context, product *domain.Product) error {
	now := time.Now().UTC()
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	product.CreatedAt = now
	product.UpdatedAt = now

	if _, err := m.collection.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (m *mongoProductRepository) Update(
	ctx context.Context,
	id, vendorID primitive.ObjectID,
	patch domain.ProductPatch) (*domain.Product, error) {

	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Brand != nil {
		set["brand"] = *patch.Brand
	}
	if patch.StockQuantity != nil {
		set["stockQuantity"] = *patch.StockQuantity
	}
	if patch.Images != nil {
		set["images"] = *patch.Images
	}

	var p domain.Product
	err := m.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "vendorId": vendorID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return nil, m.ownershipError(ctx, id)
}

func (m *mongoProductRepository) Delete(ctx context.Context, id, vendorID primitive.ObjectID) error {
	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": id, "vendorId": vendorID})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return m.ownershipError(ctx, id)
	}
	return nil
}

func (m *mongoProductRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "vendorId", Value: 1}}},
	}
	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

// ownershipError explains why a vendor-scoped write matched nothing.
func (m *mongoProductRepository) ownershipError(ctx context.Context, id primitive.ObjectID) error {
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}
	return ErrNotOwner
}
