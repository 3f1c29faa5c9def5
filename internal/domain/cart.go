package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cart is the single per-buyer cart. TotalItems and TotalAmount are
// denormalized sums over Items.
type Cart struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitzero"`
	BuyerID     primitive.ObjectID `bson:"buyerId" json:"buyerId"`
	Items       []CartLine         `bson:"items" json:"items"`
	TotalItems  int                `bson:"totalItems" json:"totalItems"`
	TotalAmount Money              `bson:"totalAmount" json:"totalAmount"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CartLine carries a snapshot of product data taken when it was first added.
type CartLine struct {
	ProductID   primitive.ObjectID `bson:"productId" json:"productId"`
	ProductName string             `bson:"productName" json:"productName"`
	Price       Money              `bson:"price" json:"price"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Image       string             `bson:"image" json:"image"`
	VendorID    primitive.ObjectID `bson:"vendorId" json:"vendorId"`
	VendorName  string             `bson:"vendorName" json:"vendorName"`
}

// LineDetails is what a caller supplies when adding a product for the first time.
type LineDetails struct {
	ProductName string
	Price       Money
	Image       string
	VendorID    primitive.ObjectID
	VendorName  string
}

func (d LineDetails) NewLine(productID primitive.ObjectID) CartLine {
	return CartLine{
		ProductID:   productID,
		ProductName: d.ProductName,
		Price:       d.Price,
		Quantity:    1,
		Image:       d.Image,
		VendorID:    d.VendorID,
		VendorName:  d.VendorName,
	}
}

func NewEmptyCart(buyerID primitive.ObjectID, now time.Time) *Cart {
	return &Cart{
		BuyerID:   buyerID,
		Items:     []CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Cart) Line(productID primitive.ObjectID) (CartLine, bool) {
	for _, line := range c.Items {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Consistent reports whether the denormalized totals match the lines.
func (c *Cart) Consistent() bool {
	items := 0
	amount := Money{}
	for _, line := range c.Items {
		if line.Quantity < 1 {
			return false
		}
		items += line.Quantity
		amount = amount.Add(LineTotal(line.Price, line.Quantity))
	}
	return items == c.TotalItems && amount.Equal(c.TotalAmount)
}

// MaxQuantityDelta bounds a single signed quantity change.
const MaxQuantityDelta = math.MaxInt32

// AdjustOutcome tells callers whether a quantity change kept or dropped the line.
type AdjustOutcome int

const (
	LineUpdated AdjustOutcome = iota
	LineRemoved
)

type AdjustResult struct {
	Cart    *Cart
	Outcome AdjustOutcome
}
