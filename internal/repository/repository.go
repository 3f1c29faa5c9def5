package repository

import (
	"context"
	"errors"

	"github.com/kriyptor/Market-Place-App/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrLineNotFound     = errors.New("product not found in cart")
	ErrConcurrentUpdate = errors.New("cart changed concurrently, retries exhausted")
	ErrOrderNotFound    = errors.New("order not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateEmail   = errors.New("user already exists")
	ErrProductNotFound  = errors.New("product not found")
	ErrAlreadyProcessed = errors.New("event already applied")
	ErrNotOwner         = errors.New("resource belongs to another vendor")
)

// CartRepository owns the Cart documents. Every mutation is a single
// conditional update on one document.
type CartRepository interface {
	Get(ctx context.Context, buyerID primitive.ObjectID) (*domain.Cart, error)
	FindOrCreate(ctx context.Context, buyerID primitive.ObjectID) (*domain.Cart, error)
	UpsertLine(ctx context.Context, buyerID, productID primitive.ObjectID, details domain.LineDetails) (*domain.Cart, error)
	AdjustQuantity(ctx context.Context, buyerID, productID primitive.ObjectID, delta int) (*domain.AdjustResult, error)
	RemoveLine(ctx context.Context, buyerID, productID primitive.ObjectID) (*domain.Cart, error)
	Clear(ctx context.Context, buyerID primitive.ObjectID) (*domain.Cart, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID primitive.ObjectID, page domain.Page) (*domain.OrderList, error)
	ListByVendor(ctx context.Context, vendorID primitive.ObjectID, page domain.Page) (*domain.OrderList, error)
	UpdateStatus(ctx context.Context, id, vendorID primitive.ObjectID, status domain.OrderStatus) (*domain.Order, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type ProductRepository interface {
	List(ctx context.Context, page domain.Page) (*domain.ProductList, error)
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id, vendorID primitive.ObjectID, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id, vendorID primitive.ObjectID) error
}

type SalesRepository interface {
	// ApplyOrder folds one vendor's share of an order into the projection.
	// Returns ErrAlreadyProcessed when the pair was applied before.
	ApplyOrder(ctx context.Context, orderID, vendorID primitive.ObjectID, units int64, revenue domain.Money) error
	Get(ctx context.Context, vendorID primitive.ObjectID) (*domain.VendorSales, error)
}

// Transactor runs fn so that all repository writes made with the passed
// context commit together, when the store supports it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Atomic reports whether a failed fn rolls back the writes it made.
	Atomic() bool
}
