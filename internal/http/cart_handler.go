package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kriyptor/Market-Place-App/internal/apperr"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartService interface {
	GetCart(ctx context.Context, buyerID primitive.ObjectID) (*domain.Cart, error)
	AddItem(ctx context.Context, buyerID primitive.ObjectID, in service.AddItemInput) (*domain.Cart, error)
	SetQuantityDelta(ctx context.Context, buyerID primitive.ObjectID, productID string, delta *int) (*domain.AdjustResult, error)
	RemoveItem(ctx context.Context, buyerID primitive.ObjectID, productID string) (*domain.Cart, error)
	Checkout(ctx context.Context, buyerID primitive.ObjectID, opts service.CheckoutOptions) (*domain.CheckoutResult, error)
}

type CartHandler struct {
	cart CartService
	log  *logger.Logger
}

func NewCartHandler(cart CartService, log *logger.Logger) *CartHandler {
	return &CartHandler{cart: cart, log: log}
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	cart, err := h.cart.GetCart(r.Context(), identity.UserID)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Success", cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req service.AddItemInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	cart, err := h.cart.AddItem(r.Context(), identity.UserID, req)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, service.MsgItemAdded, cart)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), h.log, w, apperr.Validation("Quantity data is missing or invalid"))
		return
	}

	result, err := h.cart.SetQuantityDelta(r.Context(), identity.UserID, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	message := service.MsgQuantityUpdated
	if result.Outcome == domain.LineRemoved {
		message = service.MsgItemRemoved
	}
	respondSuccess(w, http.StatusOK, message, result.Cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	cart, err := h.cart.RemoveItem(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgItemRemoved, cart)
}

// Checkout accepts an optional body carrying the payment status.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var opts service.CheckoutOptions
	if err := decodeJSON(r, &opts); err != nil && !isEmptyBody(err) {
		respondError(r.Context(), h.log, w, err)
		return
	}

	result, err := h.cart.Checkout(r.Context(), identity.UserID, opts)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgCheckoutDone, result)
}
