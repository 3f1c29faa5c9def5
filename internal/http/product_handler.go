package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductService interface {
	List(ctx context.Context, page domain.Page) (*domain.ProductList, error)
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Create(ctx context.Context, vendorID primitive.ObjectID, in service.CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, vendorID primitive.ObjectID, productID string, in service.UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, vendorID primitive.ObjectID, productID string) error
}

type ProductHandler struct {
	products ProductService
	log      *logger.Logger
}

func NewProductHandler(products ProductService, log *logger.Logger) *ProductHandler {
	return &ProductHandler{products: products, log: log}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	list, err := h.products.List(r.Context(), page)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	products := list.Products
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, http.StatusOK, SuccessResponse{
		Success:    true,
		Data:       products,
		Pagination: productPagination(page, list.Total),
	})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Success", product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req service.CreateProductInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	product, err := h.products.Create(r.Context(), identity.UserID, req)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, service.MsgItemAdded, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req service.UpdateProductInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	product, err := h.products.Update(r.Context(), identity.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgProductUpdated, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	if err := h.products.Delete(r.Context(), identity.UserID, chi.URLParam(r, "id")); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgProductDeleted, nil)
}
