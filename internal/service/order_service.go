package service

import (
	"context"

	"github.com/kriyptor/Market-Place-App/internal/apperr"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderService struct {
	orders repository.OrderRepository
	sales  repository.SalesRepository
	log    *logger.Logger
}

func NewOrderService(orders repository.OrderRepository, sales repository.SalesRepository, log *logger.Logger) *OrderService {
	if log == nil {
		log = logger.Nop()
	}
	return &OrderService{orders: orders, sales: sales, log: log}
}

func (s *OrderService) BuyerOrders(ctx context.Context, buyerID primitive.ObjectID, page domain.Page) (*domain.OrderList, error) {
	list, err := s.orders.ListByBuyer(ctx, buyerID, page)
	if err != nil {
		return nil, storeError(ctx, s.log, "list buyer orders", err)
	}
	return list, nil
}

// VendorOrders lists every order holding at least one line sold by vendorID.
// Lines of other vendors stay in the returned orders.
func (s *OrderService) VendorOrders(ctx context.Context, vendorID primitive.ObjectID, page domain.Page) (*domain.OrderList, error) {
	list, err := s.orders.ListByVendor(ctx, vendorID, page)
	if err != nil {
		return nil, storeError(ctx, s.log, "list vendor orders", err)
	}
	return list, nil
}

func (s *OrderService) VendorSales(ctx context.Context, vendorID primitive.ObjectID) (*domain.VendorSales, error) {
	sales, err := s.sales.Get(ctx, vendorID)
	if err != nil {
		return nil, storeError(ctx, s.log, "get vendor sales", err)
	}
	return sales, nil
}

type UpdateStatusInput struct {
	OrderStatus domain.OrderStatus `json:"orderStatus" validate:"required"`
}

func (s *OrderService) UpdateStatus(
	ctx context.Context,
	vendorID primitive.ObjectID,
	orderID string,
	in UpdateStatusInput,
) (*domain.Order, error) {
	id, err := parseObjectID(orderID, "Invalid order ID format")
	if err != nil {
		return nil, err
	}
	if err := validateStruct(in, msgRequiredFields); err != nil {
		return nil, err
	}
	if !in.OrderStatus.IsValid() {
		return nil, apperr.Validation("Invalid order status").
			WithDetails(map[string]string{"orderStatus": "must be one of Processing Shipped Delivered Cancelled"})
	}

	order, err := s.orders.UpdateStatus(ctx, id, vendorID, in.OrderStatus)
	if err != nil {
		return nil, storeError(ctx, s.log, "update order status", err)
	}
	return order, nil
}
