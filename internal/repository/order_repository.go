package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/kriyptor/Market-Place-App/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ordersCollection = "orders"

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{collection: db.Collection(ordersCollection)}
}

func (m *mongoOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if order.Items == nil {
		order.Items = []domain.OrderLine{}
	}

	if _, err := m.collection.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) Get(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return &order, nil
}

func (m *mongoOrderRepository) ListByBuyer(ctx context.Context, buyerID primitive.ObjectID, page domain.Page) (*domain.OrderList, error) {
	return m.list(ctx, bson.M{"buyerId": buyerID}, page)
}

// ListByVendor returns every order with at least one line sold by vendorID.
func (m *mongoOrderRepository) ListByVendor(ctx context.Context, vendorID primitive.ObjectID, page domain.Page) (*domain.OrderList, error) {
	return m.list(ctx, bson.M{"items.vendorId": vendorID}, page)
}

func (m *mongoOrderRepository) UpdateStatus(
	ctx context.Context,
	id, vendorID primitive.ObjectID,
	status domain.OrderStatus) (*domain.Order, error) {

	var order domain.Order
	err := m.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "items.vendorId": vendorID},
		bson.M{"$set": bson.M{"orderStatus": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	// Tell a missing order apart from one this vendor has no lines in.
	if _, getErr := m.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrNotOwner
}

func (m *mongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "buyerId", Value: 1}, {Key: "orderDate", Value: -1}}},
		{Keys: bson.D{{Key: "orderDate", Value: -1}}},
		{Keys: bson.D{{Key: "items.vendorId", Value: 1}}},
	}
	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) list(ctx context.Context, filter bson.M, page domain.Page) (*domain.OrderList, error) {
	total, err := m.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "orderDate", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0, page.Limit)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	return &domain.OrderList{Orders: orders, Total: total}, nil
}
