package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kriyptor/Market-Place-App/internal/apperr"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/metrics"
	"github.com/kriyptor/Market-Place-App/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

const (
	MsgItemAdded       = "Successfully added new product"
	MsgQuantityUpdated = "Product quantity updated"
	MsgItemRemoved     = "Product removed from cart"
	MsgCheckoutDone    = "Checkout successful, order created and cart cleared"

	msgRequiredFields  = "Required fields are missing!"
	msgInvalidProduct  = "Invalid product ID format"
	msgInvalidVendor   = "Invalid vendor ID format"
	msgInvalidQuantity = "Quantity data is missing or invalid"
)

// AddItemInput is the body of an add-to-cart request. The line details are
// copied onto the cart as sent and never re-read from the catalog.
type AddItemInput struct {
	ProductID   string        `json:"productId" validate:"required"`
	ProductName string        `json:"productName" validate:"required"`
	Price       *domain.Money `json:"price" validate:"required"`
	Image       string        `json:"image" validate:"required"`
	VendorID    string        `json:"vendorId" validate:"required"`
	VendorName  string        `json:"vendorName" validate:"required"`
}

type CartService struct {
	repo     repository.CartRepository
	checkout *CheckoutService
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	sfg      singleflight.Group // coalesces cart creation per buyer
}

func NewCartService(
	repo repository.CartRepository,
	checkout *CheckoutService,
	log *logger.Logger,
	m *metrics.Metrics,
) *CartService {
	if log == nil {
		log = logger.Nop()
	}
	return &CartService{
		repo:     repo,
		checkout: checkout,
		log:      log,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetCart returns the buyer's cart, or an unsaved empty one when the buyer
// has never added anything.
func (s *CartService) GetCart(ctx context.Context, buyerID primitive.ObjectID) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, buyerID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewEmptyCart(buyerID, s.now()), nil
	}
	if err != nil {
		return nil, storeError(ctx, s.log, "get cart", err)
	}
	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, buyerID primitive.ObjectID, in AddItemInput) (*domain.Cart, error) {
	cart, err := s.addItem(ctx, buyerID, in)
	s.metrics.RecordCartOperation("add_item", err)
	return cart, err
}

func (s *CartService) addItem(ctx context.Context, buyerID primitive.ObjectID, in AddItemInput) (*domain.Cart, error) {
	if err := validateStruct(in, msgRequiredFields); err != nil {
		return nil, err
	}
	if !in.Price.IsPositive() {
		return nil, apperr.Validation("Price must be greater than 0").
			WithDetails(map[string]string{"price": "must be greater than 0"})
	}
	productID, err := parseObjectID(in.ProductID, msgInvalidProduct)
	if err != nil {
		return nil, err
	}
	vendorID, err := parseObjectID(in.VendorID, msgInvalidVendor)
	if err != nil {
		return nil, err
	}

	details := domain.LineDetails{
		ProductName: in.ProductName,
		Price:       *in.Price,
		Image:       in.Image,
		VendorID:    vendorID,
		VendorName:  in.VendorName,
	}

	cart, err := s.repo.UpsertLine(ctx, buyerID, productID, details)
	if errors.Is(err, repository.ErrCartNotFound) {
		if err = s.ensureCart(ctx, buyerID); err != nil {
			return nil, storeError(ctx, s.log, "create cart", err)
		}
		cart, err = s.repo.UpsertLine(ctx, buyerID, productID, details)
	}
	if err != nil {
		return nil, storeError(ctx, s.log, "add item", err)
	}
	return cart, nil
}

func (s *CartService) ensureCart(ctx context.Context, buyerID primitive.ObjectID) error {
	_, err, _ := s.sfg.Do(buyerID.Hex(), func() (interface{}, error) {
		return s.repo.FindOrCreate(ctx, buyerID)
	})
	return err
}

// SetQuantityDelta applies a signed change to one line. A result below one
// unit drops the line; the outcome tells the caller which happened.
func (s *CartService) SetQuantityDelta(
	ctx context.Context,
	buyerID primitive.ObjectID,
	productID string,
	delta *int,
) (*domain.AdjustResult, error) {
	result, err := s.setQuantityDelta(ctx, buyerID, productID, delta)
	s.metrics.RecordCartOperation("adjust_quantity", err)
	return result, err
}

func (s *CartService) setQuantityDelta(
	ctx context.Context,
	buyerID primitive.ObjectID,
	productID string,
	delta *int,
) (*domain.AdjustResult, error) {
	if delta == nil || *delta == 0 {
		return nil, apperr.Validation(msgInvalidQuantity)
	}
	if *delta > domain.MaxQuantityDelta || *delta < -domain.MaxQuantityDelta {
		return nil, apperr.Validation(msgInvalidQuantity).
			WithDetails(map[string]string{"quantity": fmt.Sprintf("must be between %d and %d", -domain.MaxQuantityDelta, domain.MaxQuantityDelta)})
	}
	pid, err := parseObjectID(productID, msgInvalidProduct)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.AdjustQuantity(ctx, buyerID, pid, *delta)
	if err != nil {
		return nil, storeError(ctx, s.log, "adjust quantity", err)
	}
	return result, nil
}

func (s *CartService) RemoveItem(ctx context.Context, buyerID primitive.ObjectID, productID string) (*domain.Cart, error) {
	cart, err := s.removeItem(ctx, buyerID, productID)
	s.metrics.RecordCartOperation("remove_item", err)
	return cart, err
}

func (s *CartService) removeItem(ctx context.Context, buyerID primitive.ObjectID, productID string) (*domain.Cart, error) {
	pid, err := parseObjectID(productID, msgInvalidProduct)
	if err != nil {
		return nil, err
	}
	cart, err := s.repo.RemoveLine(ctx, buyerID, pid)
	if err != nil {
		return nil, storeError(ctx, s.log, "remove item", err)
	}
	return cart, nil
}

func (s *CartService) Checkout(ctx context.Context, buyerID primitive.ObjectID, opts CheckoutOptions) (*domain.CheckoutResult, error) {
	return s.checkout.Checkout(ctx, buyerID, opts)
}
