package service

import (
	"context"
	"strings"

	"github.com/kriyptor/Market-Place-App/internal/apperr"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MsgProductUpdated = "Product updated successfully"
	MsgProductDeleted = "Product deleted successfully"

	msgInvalidProductData = "Invalid product data"
)

type CreateProductInput struct {
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	Price         *domain.Money   `json:"price" validate:"required"`
	Category      domain.Category `json:"category" validate:"required"`
	Brand         string          `json:"brand"`
	StockQuantity *int            `json:"stockQuantity" validate:"omitempty,min=0"`
	Images        string          `json:"images"`
}

// UpdateProductInput is a partial update; absent fields stay as they are.
type UpdateProductInput struct {
	Name          *string          `json:"name" validate:"omitempty,min=1"`
	Description   *string          `json:"description"`
	Price         *domain.Money    `json:"price"`
	Category      *domain.Category `json:"category"`
	Brand         *string          `json:"brand"`
	StockQuantity *int             `json:"stockQuantity" validate:"omitempty,min=0"`
	Images        *string          `json:"images"`
}

func (in UpdateProductInput) patch() domain.ProductPatch {
	return domain.ProductPatch{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		Category:      in.Category,
		Brand:         in.Brand,
		StockQuantity: in.StockQuantity,
		Images:        in.Images,
	}
}

func (in UpdateProductInput) empty() bool {
	return in.Name == nil && in.Description == nil && in.Price == nil && in.Category == nil &&
		in.Brand == nil && in.StockQuantity == nil && in.Images == nil
}

type ProductService struct {
	products repository.ProductRepository
	users    repository.UserRepository
	log      *logger.Logger
}

func NewProductService(products repository.ProductRepository, users repository.UserRepository, log *logger.Logger) *ProductService {
	if log == nil {
		log = logger.Nop()
	}
	return &ProductService{products: products, users: users, log: log}
}

func (s *ProductService) List(ctx context.Context, page domain.Page) (*domain.ProductList, error) {
	list, err := s.products.List(ctx, page)
	if err != nil {
		return nil, storeError(ctx, s.log, "list products", err)
	}
	return list, nil
}

func (s *ProductService) Get(ctx context.Context, productID string) (*domain.Product, error) {
	id, err := parseObjectID(productID, msgInvalidProduct)
	if err != nil {
		return nil, err
	}
	product, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.log, "get product", err)
	}
	return product, nil
}

func (s *ProductService) Create(ctx context.Context, vendorID primitive.ObjectID, in CreateProductInput) (*domain.Product, error) {
	if err := validateStruct(in, msgRequiredFields); err != nil {
		return nil, err
	}
	if err := checkProductValues(in.Price, &in.Category); err != nil {
		return nil, err
	}

	vendor, err := s.users.GetByID(ctx, vendorID)
	if err != nil {
		return nil, storeError(ctx, s.log, "load vendor", err)
	}

	product := &domain.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Price:         *in.Price,
		Category:      in.Category,
		Brand:         in.Brand,
		StockQuantity: domain.DefaultStockQuantity,
		Images:        in.Images,
		VendorID:      vendorID,
		VendorName:    vendorName(vendor),
	}
	if product.Description == "" {
		product.Description = domain.DefaultProductDescription
	}
	if product.Images == "" {
		product.Images = domain.DefaultProductImage
	}
	if in.StockQuantity != nil {
		product.StockQuantity = *in.StockQuantity
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, storeError(ctx, s.log, "create product", err)
	}
	return product, nil
}

func (s *ProductService) Update(
	ctx context.Context,
	vendorID primitive.ObjectID,
	productID string,
	in UpdateProductInput,
) (*domain.Product, error) {
	id, err := parseObjectID(productID, msgInvalidProduct)
	if err != nil {
		return nil, err
	}
	if in.empty() {
		return nil, apperr.Validation("No fields to update")
	}
	if err := validateStruct(in, msgInvalidProductData); err != nil {
		return nil, err
	}
	if err := checkProductValues(in.Price, in.Category); err != nil {
		return nil, err
	}

	product, err := s.products.Update(ctx, id, vendorID, in.patch())
	if err != nil {
		return nil, storeError(ctx, s.log, "update product", err)
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, vendorID primitive.ObjectID, productID string) error {
	id, err := parseObjectID(productID, msgInvalidProduct)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id, vendorID); err != nil {
		return storeError(ctx, s.log, "delete product", err)
	}
	return nil
}

func checkProductValues(price *domain.Money, category *domain.Category) error {
	details := map[string]string{}
	if price != nil && price.IsNegative() {
		details["price"] = "must be at least 0"
	}
	if category != nil && !category.IsValid() {
		details["category"] = "must be one of Electronics, Clothing, Home Goods, Books, Sports, Other"
	}
	if len(details) > 0 {
		return apperr.Validation(msgInvalidProductData).WithDetails(details)
	}
	return nil
}

func vendorName(vendor *domain.User) string {
	if vendor.VendorInfo != nil && vendor.VendorInfo.StoreName != "" {
		return vendor.VendorInfo.StoreName
	}
	return vendor.UserName
}
