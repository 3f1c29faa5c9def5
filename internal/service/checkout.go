package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kriyptor/Market-Place-App/internal/apperr"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/events"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/metrics"
	"github.com/kriyptor/Market-Place-App/internal/repository"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CheckoutOptions struct {
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
}

// CheckoutService turns a buyer's cart into an order and empties the cart.
// Both writes go through the transactor: with transactions enabled they commit
// together, otherwise the order is written first so a failed insert leaves
// the cart intact.
type CheckoutService struct {
	carts     repository.CartRepository
	orders    repository.OrderRepository
	users     repository.UserRepository
	tx        repository.Transactor
	publisher events.Publisher
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewCheckoutService(
	carts repository.CartRepository,
	orders repository.OrderRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	publisher events.Publisher,
	log *logger.Logger,
	m *metrics.Metrics,
) *CheckoutService {
	if log == nil {
		log = logger.Nop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &CheckoutService{
		carts:     carts,
		orders:    orders,
		users:     users,
		tx:        tx,
		publisher: publisher,
		log:       log,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *CheckoutService) Checkout(
	ctx context.Context,
	buyerID primitive.ObjectID,
	opts CheckoutOptions,
) (*domain.CheckoutResult, error) {
	start := time.Now()
	result, err := s.checkout(ctx, buyerID, opts)
	s.metrics.RecordCheckout(checkoutOutcome(err), time.Since(start))
	return result, err
}

func (s *CheckoutService) checkout(
	ctx context.Context,
	buyerID primitive.ObjectID,
	opts CheckoutOptions,
) (*domain.CheckoutResult, error) {
	paymentStatus := opts.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = domain.PaymentPending
	}
	if !paymentStatus.IsValid() {
		return nil, apperr.Validation("Invalid payment status").
			WithDetails(map[string]string{"paymentStatus": "must be one of Pending Paid Failed Refunded"})
	}

	buyer, err := s.buyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	var result *domain.CheckoutResult
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		// The cart is read inside the unit of work so the snapshot and the
		// clear see the same lines when transactions are on.
		cart, err := s.carts.Get(txCtx, buyerID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return apperr.New(apperr.CodeEmptyCart, "Cart Not found")
		}
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if cart.IsEmpty() {
			return apperr.New(apperr.CodeEmptyCart, "No product found")
		}

		order := &domain.Order{
			ID:              primitive.NewObjectID(),
			BuyerID:         buyer.ID,
			BuyerEmail:      buyer.Email,
			OrderDate:       s.now(),
			TotalAmount:     cart.TotalAmount,
			ShippingAddress: buyer.Address,
			PaymentStatus:   paymentStatus,
			OrderStatus:     domain.OrderStatusProcessing,
			Items:           domain.SnapshotLines(cart.Items),
		}
		if err := s.orders.Create(txCtx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		cleared, err := s.carts.Clear(txCtx, buyerID)
		if err != nil {
			if !s.tx.Atomic() {
				s.log.Event(txCtx, zerolog.ErrorLevel).
					Err(err).
					Str("order_id", order.ID.Hex()).
					Str("buyer_id", buyerID.Hex()).
					Msg("cart not cleared after order was written")
			}
			return fmt.Errorf("clear cart after order %s: %w", order.ID.Hex(), err)
		}

		result = &domain.CheckoutResult{Order: order, Cart: cleared}
		return nil
	})
	if err != nil {
		return nil, storeError(ctx, s.log, "checkout", err)
	}

	if err := s.publisher.PublishOrderPlaced(ctx, result.Order); err != nil {
		ctx = s.log.WithField(ctx, "order_id", result.Order.ID.Hex())
		s.log.Warn(ctx, "order placed event not published", err)
	}
	return result, nil
}

func (s *CheckoutService) buyer(ctx context.Context, buyerID primitive.ObjectID) (*domain.Buyer, error) {
	user, err := s.users.GetByID(ctx, buyerID)
	if err != nil {
		return nil, storeError(ctx, s.log, "load buyer", err)
	}
	return &domain.Buyer{ID: user.ID, Email: user.Email, Address: user.Address}, nil
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperr.CodeOf(err) == apperr.CodeEmptyCart:
		return "empty_cart"
	case apperr.CodeOf(err) == apperr.CodeValidation, apperr.CodeOf(err) == apperr.CodeNotFound:
		return "rejected"
	}
	return "error"
}
