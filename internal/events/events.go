package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const OrderPlacedType = "order.placed"

type OrderPlacedLine struct {
	ProductID primitive.ObjectID `json:"product_id"`
	VendorID  primitive.ObjectID `json:"vendor_id"`
	Quantity  int                `json:"quantity"`
	Price     domain.Money       `json:"price"`
}

// OrderPlaced is published once per committed checkout.
type OrderPlaced struct {
	EventID     string             `json:"event_id"`
	Type        string             `json:"type"`
	OccurredAt  time.Time          `json:"occurred_at"`
	OrderID     primitive.ObjectID `json:"order_id"`
	BuyerID     primitive.ObjectID `json:"buyer_id"`
	TotalAmount domain.Money       `json:"total_amount"`
	Lines       []OrderPlacedLine  `json:"lines"`
}

func NewOrderPlaced(order *domain.Order) OrderPlaced {
	lines := make([]OrderPlacedLine, len(order.Items))
	for i, item := range order.Items {
		lines[i] = OrderPlacedLine{
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	return OrderPlaced{
		EventID:     uuid.NewString(),
		Type:        OrderPlacedType,
		OccurredAt:  order.OrderDate,
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		TotalAmount: order.TotalAmount,
		Lines:       lines,
	}
}

// VendorShare is one vendor's slice of an order.
type VendorShare struct {
	VendorID primitive.ObjectID
	Units    int64
	Revenue  domain.Money
}

// VendorShares groups the lines by vendor, in first-seen order.
func (e OrderPlaced) VendorShares() []VendorShare {
	index := make(map[primitive.ObjectID]int)
	var shares []VendorShare
	for _, line := range e.Lines {
		i, ok := index[line.VendorID]
		if !ok {
			i = len(shares)
			index[line.VendorID] = i
			shares = append(shares, VendorShare{VendorID: line.VendorID})
		}
		shares[i].Units += int64(line.Quantity)
		shares[i].Revenue = shares[i].Revenue.Add(domain.LineTotal(line.Price, line.Quantity))
	}
	return shares
}

// Publisher announces placed orders. Implementations must not block checkout
// on a broken broker for long.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, *domain.Order) error { return nil }
