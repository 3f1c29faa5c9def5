package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryClothing    Category = "Clothing"
	CategoryHomeGoods   Category = "Home Goods"
	CategoryBooks       Category = "Books"
	CategorySports      Category = "Sports"
	CategoryOther       Category = "Other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryElectronics, CategoryClothing, CategoryHomeGoods, CategoryBooks, CategorySports, CategoryOther:
		return true
	}
	return false
}

const (
	DefaultProductDescription = "This is default text for the product description"
	DefaultProductImage       = "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcTKnKnw0MtmVH5_-A-wrEh5OiTSL3lu_5MZZA&s"
	DefaultStockQuantity      = 10
)

type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Price         Money              `bson:"price" json:"price"`
	Category      Category           `bson:"category" json:"category"`
	Brand         string             `bson:"brand,omitempty" json:"brand,omitempty"`
	StockQuantity int                `bson:"stockQuantity" json:"stockQuantity"`
	Images        string             `bson:"images" json:"images"`
	VendorID      primitive.ObjectID `bson:"vendorId" json:"vendorId"`
	VendorName    string             `bson:"vendorName" json:"vendorName"`
	AverageRating float64            `bson:"averageRating" json:"averageRating"`
	TotalReviews  int                `bson:"totalReviews" json:"totalReviews"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProductPatch holds the fields a vendor may change; nil means unchanged.
type ProductPatch struct {
	Name          *string
	Description   *string
	Price         *Money
	Category      *Category
	Brand         *string
	StockQuantity *int
	Images        *string
}

type ProductList struct {
	Products []*Product
	Total    int64
}
