package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentFailed   PaymentStatus = "Failed"
	PaymentRefunded PaymentStatus = "Refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type Address struct {
	Street  string `bson:"street" json:"street" validate:"required"`
	City    string `bson:"city" json:"city" validate:"required"`
	State   string `bson:"state" json:"state" validate:"required"`
	ZipCode string `bson:"zipCode" json:"zipCode" validate:"required"`
	Country string `bson:"country" json:"country" validate:"required"`
}

func (a Address) IsComplete() bool {
	return a.Street != "" && a.City != "" && a.State != "" && a.ZipCode != "" && a.Country != ""
}

// OrderLine is a cart line frozen at checkout; Price is the price at purchase.
type OrderLine struct {
	ProductID   primitive.ObjectID `bson:"productId" json:"productId"`
	ProductName string             `bson:"productName" json:"productName"`
	Price       Money              `bson:"price" json:"price"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	VendorID    primitive.ObjectID `bson:"vendorId" json:"vendorId"`
	VendorName  string             `bson:"vendorName" json:"vendorName"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	BuyerID         primitive.ObjectID `bson:"buyerId" json:"buyerId"`
	BuyerEmail      string             `bson:"buyerEmail" json:"buyerEmail"`
	OrderDate       time.Time          `bson:"orderDate" json:"orderDate"`
	TotalAmount     Money              `bson:"totalAmount" json:"totalAmount"`
	ShippingAddress Address            `bson:"shippingAddress" json:"shippingAddress"`
	PaymentStatus   PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	OrderStatus     OrderStatus        `bson:"orderStatus" json:"orderStatus"`
	Items           []OrderLine        `bson:"items" json:"items"`
}

// HasVendor reports whether any line was sold by vendorID.
func (o *Order) HasVendor(vendorID primitive.ObjectID) bool {
	for _, line := range o.Items {
		if line.VendorID == vendorID {
			return true
		}
	}
	return false
}

// SnapshotLines copies cart lines into order lines, keeping the add-time price.
func SnapshotLines(lines []CartLine) []OrderLine {
	out := make([]OrderLine, len(lines))
	for i, line := range lines {
		out[i] = OrderLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Price:       line.Price,
			Quantity:    line.Quantity,
			VendorID:    line.VendorID,
			VendorName:  line.VendorName,
		}
	}
	return out
}

type CheckoutResult struct {
	Order *Order `json:"order"`
	Cart  *Cart  `json:"cart"`
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

func (p Page) Skip() int64 {
	return int64((p.Number - 1) * p.Limit)
}

type OrderList struct {
	Orders []*Order
	Total  int64
}

// VendorSales is the per-vendor projection built from placed orders.
type VendorSales struct {
	VendorID    primitive.ObjectID `bson:"_id" json:"vendorId"`
	OrdersCount int64              `bson:"ordersCount" json:"ordersCount"`
	UnitsSold   int64              `bson:"unitsSold" json:"unitsSold"`
	Revenue     Money              `bson:"revenue" json:"revenue"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
