package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderService interface {
	BuyerOrders(ctx context.Context, buyerID primitive.ObjectID, page domain.Page) (*domain.OrderList, error)
	VendorOrders(ctx context.Context, vendorID primitive.ObjectID, page domain.Page) (*domain.OrderList, error)
	VendorSales(ctx context.Context, vendorID primitive.ObjectID) (*domain.VendorSales, error)
	UpdateStatus(ctx context.Context, vendorID primitive.ObjectID, orderID string, in service.UpdateStatusInput) (*domain.Order, error)
}

type OrdersHandler struct {
	orders OrderService
	log    *logger.Logger
}

func NewOrdersHandler(orders OrderService, log *logger.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, log: log}
}

func (h *OrdersHandler) BuyerOrders(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	page := pageFromQuery(r)

	list, err := h.orders.BuyerOrders(r.Context(), identity.UserID, page)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondOrders(w, page, list)
}

func (h *OrdersHandler) VendorOrders(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	page := pageFromQuery(r)

	list, err := h.orders.VendorOrders(r.Context(), identity.UserID, page)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondOrders(w, page, list)
}

func (h *OrdersHandler) VendorSales(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	sales, err := h.orders.VendorSales(r.Context(), identity.UserID)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Success", sales)
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req service.UpdateStatusInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), identity.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Order status updated", order)
}

func respondOrders(w http.ResponseWriter, page domain.Page, list *domain.OrderList) {
	orders := list.Orders
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, SuccessResponse{
		Success:    true,
		Data:       orders,
		Pagination: orderPagination(page, list.Total),
	})
}

// pageFromQuery reads ?page and ?limit; anything unparsable falls back to
// the defaults.
func pageFromQuery(r *http.Request) domain.Page {
	number, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return service.NewPage(number, limit)
}
