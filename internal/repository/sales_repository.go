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

const (
	salesCollection = "vendor_sales"

	// processedWindow is how many recent order ids each vendor document
	// remembers for redelivery checks.
	processedWindow = 1000
)

type mongoSalesRepository struct {
	collection *mongo.Collection
}

func NewMongoSalesRepository(db *mongo.Database) SalesRepository {
	return &mongoSalesRepository{collection: db.Collection(salesCollection)}
}

// ApplyOrder increments the counters and records the order id in one update.
// The filter skips vendors that already saw the order, which turns a
// redelivery into an upsert on an existing _id and fails with a duplicate key.
func (m *mongoSalesRepository) ApplyOrder(
	ctx context.Context,
	orderID, vendorID primitive.ObjectID,
	units int64,
	revenue domain.Money) error {

	filter := bson.M{"_id": vendorID, "processedOrders": bson.M{"$ne": orderID}}
	update := bson.M{
		"$inc": bson.M{"ordersCount": 1, "unitsSold": units, "revenue": revenue},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
		"$push": bson.M{"processedOrders": bson.M{
			"$each":  bson.A{orderID},
			"$slice": -processedWindow,
		}},
	}
	opts := options.Update().SetUpsert(true)

	// A duplicate key on the first try can also be two new orders racing to
	// create the vendor document, so look once more before giving up.
	for attempt := 0; attempt < 2; attempt++ {
		_, err := m.collection.UpdateOne(ctx, filter, update, opts)
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) {
			return fmt.Errorf("failed to apply order to vendor sales: %w", err)
		}
	}
	return ErrAlreadyProcessed
}

func (m *mongoSalesRepository) Get(ctx context.Context, vendorID primitive.ObjectID) (*domain.VendorSales, error) {
	var sales domain.VendorSales
	err := m.collection.FindOne(ctx,
		bson.M{"_id": vendorID},
		options.FindOne().SetProjection(bson.M{"processedOrders": 0}),
	).Decode(&sales)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &domain.VendorSales{VendorID: vendorID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor sales: %w", err)
	}
	return &sales, nil
}
