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
	cartsCollection = "carts"

	// maxCASAttempts bounds the retries when a conditional element match
	// misses because another request changed the line in between.
	maxCASAttempts = 5
)

type mongoCartRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection(cartsCollection),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *mongoCartRepository) Get(ctx context.Context, buyerID primitive.ObjectID) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.collection.FindOne(ctx, bson.M{"buyerId": buyerID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	normalize(&cart)
	return &cart, nil
}

func (m *mongoCartRepository) FindOrCreate(ctx context.Context, buyerID primitive.ObjectID) (*domain.Cart, error) {
	now := m.now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"items":       bson.A{},
			"totalItems":  0,
			"totalAmount": domain.Money{},
			"createdAt":   now,
			"updatedAt":   now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	cart, err := m.apply(ctx, bson.M{"buyerId": buyerID}, update, opts)
	if err != nil {
		// Two upserts raced on the unique buyerId index; the winner's cart exists now.
		if isDuplicateKey(err) {
			return m.Get(ctx, buyerID)
		}
		return nil, fmt.Errorf("failed to find or create cart: %w", err)
	}
	return cart, nil
}

func (m *mongoCartRepository) UpsertLine(
	ctx context.Context,
	buyerID, productID primitive.ObjectID,
	details domain.LineDetails) (*domain.Cart, error) {

	price := details.Price
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		now := m.now()

		// New line, only while the cart has no line for this product
		cart, err := m.apply(ctx,
			bson.M{"buyerId": buyerID, "items.productId": bson.M{"$ne": productID}},
			bson.M{
				"$push": bson.M{"items": details.NewLine(productID)},
				"$inc":  bson.M{"totalItems": 1, "totalAmount": details.Price},
				"$set":  bson.M{"updatedAt": now},
			})
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to add cart line: %w", err)
		}

		// Existing line, charged at the price it was first added with
		cart, err = m.apply(ctx,
			bson.M{"buyerId": buyerID, "items": bson.M{"$elemMatch": bson.M{"productId": productID, "price": price}}},
			bson.M{
				"$inc": bson.M{"items.$.quantity": 1, "totalItems": 1, "totalAmount": price},
				"$set": bson.M{"updatedAt": now},
			})
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to increment cart line: %w", err)
		}

		// Neither condition held: the cart is missing, or the stored line
		// carries a different price snapshot, or it vanished in between.
		current, err := m.Get(ctx, buyerID)
		if err != nil {
			return nil, err
		}
		if line, ok := current.Line(productID); ok {
			price = line.Price
		}
	}

	return nil, ErrConcurrentUpdate
}

func (m *mongoCartRepository) AdjustQuantity(
	ctx context.Context,
	buyerID, productID primitive.ObjectID,
	delta int) (*domain.AdjustResult, error) {

	if delta == 0 || delta > domain.MaxQuantityDelta || delta < -domain.MaxQuantityDelta {
		return nil, fmt.Errorf("quantity delta %d out of range", delta)
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		line, err := m.currentLine(ctx, buyerID, productID)
		if err != nil {
			return nil, err
		}

		now := m.now()
		if delta < 1-line.Quantity {
			cart, err := m.pullLine(ctx, buyerID, line, now)
			if err == nil {
				return &domain.AdjustResult{Cart: cart, Outcome: domain.LineRemoved}, nil
			}
			if !errors.Is(err, mongo.ErrNoDocuments) {
				return nil, fmt.Errorf("failed to remove cart line: %w", err)
			}
			continue
		}

		// The quantity guard keeps the line at 1 or more even if another
		// decrement landed since the read.
		cart, err := m.apply(ctx,
			bson.M{"buyerId": buyerID, "items": bson.M{"$elemMatch": bson.M{
				"productId": productID,
				"price":     line.Price,
				"quantity":  bson.M{"$gte": 1 - delta},
			}}},
			bson.M{
				"$inc": bson.M{
					"items.$.quantity": delta,
					"totalItems":       delta,
					"totalAmount":      domain.AmountDelta(line.Price, delta),
				},
				"$set": bson.M{"updatedAt": now},
			})
		if err == nil {
			return &domain.AdjustResult{Cart: cart, Outcome: domain.LineUpdated}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to update item quantity: %w", err)
		}
	}

	return nil, ErrConcurrentUpdate
}

func (m *mongoCartRepository) RemoveLine(ctx context.Context, buyerID, productID primitive.ObjectID) (*domain.Cart, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		line, err := m.currentLine(ctx, buyerID, productID)
		if err != nil {
			return nil, err
		}

		cart, err := m.pullLine(ctx, buyerID, line, m.now())
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to remove item: %w", err)
		}
	}

	return nil, ErrConcurrentUpdate
}

func (m *mongoCartRepository) Clear(ctx context.Context, buyerID primitive.ObjectID) (*domain.Cart, error) {
	now := m.now()
	update := bson.M{
		"$set": bson.M{
			"items":       bson.A{},
			"totalItems":  0,
			"totalAmount": domain.Money{},
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	cart, err := m.apply(ctx, bson.M{"buyerId": buyerID}, update, opts)
	if err != nil && isDuplicateKey(err) {
		cart, err = m.apply(ctx, bson.M{"buyerId": buyerID}, update, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	return cart, nil
}

func (m *mongoCartRepository) CreateIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "buyerId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}
	return nil
}

func (m *mongoCartRepository) currentLine(ctx context.Context, buyerID, productID primitive.ObjectID) (domain.CartLine, error) {
	cart, err := m.Get(ctx, buyerID)
	if err != nil {
		return domain.CartLine{}, err
	}
	line, ok := cart.Line(productID)
	if !ok {
		return domain.CartLine{}, ErrLineNotFound
	}
	return line, nil
}

// pullLine drops the line and subtracts its whole contribution. The match on
// the exact quantity makes sure the subtracted amount is what gets pulled.
func (m *mongoCartRepository) pullLine(
	ctx context.Context,
	buyerID primitive.ObjectID,
	line domain.CartLine,
	now time.Time) (*domain.Cart, error) {

	return m.apply(ctx,
		bson.M{"buyerId": buyerID, "items": bson.M{"$elemMatch": bson.M{
			"productId": line.ProductID,
			"price":     line.Price,
			"quantity":  line.Quantity,
		}}},
		bson.M{
			"$pull": bson.M{"items": bson.M{"productId": line.ProductID}},
			"$inc": bson.M{
				"totalItems":  -line.Quantity,
				"totalAmount": domain.LineTotal(line.Price, line.Quantity).Neg(),
			},
			"$set": bson.M{"updatedAt": now},
		})
}

func (m *mongoCartRepository) apply(
	ctx context.Context,
	filter, update interface{},
	opts ...*options.FindOneAndUpdateOptions) (*domain.Cart, error) {

	if len(opts) == 0 {
		opts = append(opts, options.FindOneAndUpdate().SetReturnDocument(options.After))
	}

	var cart domain.Cart
	if err := m.collection.FindOneAndUpdate(ctx, filter, update, opts...).Decode(&cart); err != nil {
		return nil, err
	}

	normalize(&cart)
	return &cart, nil
}

func normalize(cart *domain.Cart) {
	if cart.Items == nil {
		cart.Items = []domain.CartLine{}
	}
}
