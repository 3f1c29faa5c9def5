package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memCarts struct {
	mu       sync.Mutex
	carts    map[primitive.ObjectID]*domain.Cart
	creates  int
	clearErr error
}

func newMemCarts() *memCarts {
	return &memCarts{carts: map[primitive.ObjectID]*domain.Cart{}}
}

func cloneCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = append([]domain.CartLine{}, c.Items...)
	return &out
}

func (m *memCarts) Get(_ context.Context, buyerID primitive.ObjectID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[buyerID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cloneCart(cart), nil
}

func (m *memCarts) FindOrCreate(_ context.Context, buyerID primitive.ObjectID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[buyerID]
	if !ok {
		cart = domain.NewEmptyCart(buyerID, time.Now())
		cart.ID = primitive.NewObjectID()
		m.carts[buyerID] = cart
		m.creates++
	}
	return cloneCart(cart), nil
}

func (m *memCarts) UpsertLine(
	_ context.Context,
	buyerID, productID primitive.ObjectID,
	details domain.LineDetails,
) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[buyerID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity++
			cart.TotalItems++
			cart.TotalAmount = cart.TotalAmount.Add(cart.Items[i].Price)
			return cloneCart(cart), nil
		}
	}
	cart.Items = append(cart.Items, details.NewLine(productID))
	cart.TotalItems++
	cart.TotalAmount = cart.TotalAmount.Add(details.Price)
	return cloneCart(cart), nil
}

func (m *memCarts) AdjustQuantity(
	_ context.Context,
	buyerID, productID primitive.ObjectID,
	delta int,
) (*domain.AdjustResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[buyerID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	for i, line := range cart.Items {
		if line.ProductID != productID {
			continue
		}
		if delta < 1-line.Quantity {
			m.dropLine(cart, i)
			return &domain.AdjustResult{Cart: cloneCart(cart), Outcome: domain.LineRemoved}, nil
		}
		cart.Items[i].Quantity += delta
		cart.TotalItems += delta
		cart.TotalAmount = cart.TotalAmount.Add(domain.AmountDelta(line.Price, delta))
		return &domain.AdjustResult{Cart: cloneCart(cart), Outcome: domain.LineUpdated}, nil
	}
	return nil, repository.ErrLineNotFound
}

func (m *memCarts) RemoveLine(_ context.Context, buyerID, productID primitive.ObjectID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[buyerID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	for i, line := range cart.Items {
		if line.ProductID == productID {
			m.dropLine(cart, i)
			return cloneCart(cart), nil
		}
	}
	return nil, repository.ErrLineNotFound
}

func (m *memCarts) dropLine(cart *domain.Cart, i int) {
	line := cart.Items[i]
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	cart.TotalItems -= line.Quantity
	cart.TotalAmount = cart.TotalAmount.Sub(domain.LineTotal(line.Price, line.Quantity))
}

func (m *memCarts) Clear(_ context.Context, buyerID primitive.ObjectID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return nil, m.clearErr
	}
	cart, ok := m.carts[buyerID]
	if !ok {
		cart = domain.NewEmptyCart(buyerID, time.Now())
		m.carts[buyerID] = cart
	}
	cart.Items = []domain.CartLine{}
	cart.TotalItems = 0
	cart.TotalAmount = domain.Money{}
	return cloneCart(cart), nil
}

type memOrders struct {
	mu        sync.Mutex
	orders    []*domain.Order
	createErr error
}

func (m *memOrders) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *memOrders) Get(_ context.Context, id primitive.ObjectID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *memOrders) ListByBuyer(_ context.Context, buyerID primitive.ObjectID, page domain.Page) (*domain.OrderList, error) {
	return m.list(page, func(o *domain.Order) bool { return o.BuyerID == buyerID }), nil
}

func (m *memOrders) ListByVendor(_ context.Context, vendorID primitive.ObjectID, page domain.Page) (*domain.OrderList, error) {
	return m.list(page, func(o *domain.Order) bool { return o.HasVendor(vendorID) }), nil
}

func (m *memOrders) list(page domain.Page, keep func(*domain.Order) bool) *domain.OrderList {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*domain.Order
	for _, o := range m.orders {
		if keep(o) {
			matched = append(matched, o)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].OrderDate.After(matched[j].OrderDate) })
	out := &domain.OrderList{Total: int64(len(matched)), Orders: []*domain.Order{}}
	start := int(page.Skip())
	if start < len(matched) {
		end := min(start+page.Limit, len(matched))
		out.Orders = matched[start:end]
	}
	return out
}

func (m *memOrders) UpdateStatus(
	_ context.Context,
	id, vendorID primitive.ObjectID,
	status domain.OrderStatus,
) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID != id {
			continue
		}
		if !o.HasVendor(vendorID) {
			return nil, repository.ErrNotOwner
		}
		o.OrderStatus = status
		return o, nil
	}
	return nil, repository.ErrOrderNotFound
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{users: map[primitive.ObjectID]*domain.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type memProducts struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*domain.Product
}

func newMemProducts() *memProducts {
	return &memProducts{products: map[primitive.ObjectID]*domain.Product{}}
}

func (m *memProducts) List(_ context.Context, page domain.Page) (*domain.ProductList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &domain.ProductList{Total: int64(len(m.products))}
	for _, p := range m.products {
		out.Products = append(out.Products, p)
	}
	return out, nil
}

func (m *memProducts) Get(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, repository.ErrProductNotFound
}

func (m *memProducts) Create(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	m.products[product.ID] = product
	return nil
}

func (m *memProducts) Update(
	_ context.Context,
	id, vendorID primitive.ObjectID,
	patch domain.ProductPatch,
) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if p.VendorID != vendorID {
		return nil, repository.ErrNotOwner
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.StockQuantity != nil {
		p.StockQuantity = *patch.StockQuantity
	}
	return p, nil
}

func (m *memProducts) Delete(_ context.Context, id, vendorID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	if p.VendorID != vendorID {
		return repository.ErrNotOwner
	}
	delete(m.products, id)
	return nil
}

type memSales struct {
	mu    sync.Mutex
	sales map[primitive.ObjectID]*domain.VendorSales
}

func (m *memSales) ApplyOrder(
	_ context.Context,
	_, vendorID primitive.ObjectID,
	units int64,
	revenue domain.Money,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[vendorID]
	if !ok {
		s = &domain.VendorSales{VendorID: vendorID}
		m.sales[vendorID] = s
	}
	s.OrdersCount++
	s.UnitsSold += units
	s.Revenue = s.Revenue.Add(revenue)
	return nil
}

func (m *memSales) Get(_ context.Context, vendorID primitive.ObjectID) (*domain.VendorSales, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sales[vendorID]; ok {
		return s, nil
	}
	return &domain.VendorSales{VendorID: vendorID}, nil
}

// directTx runs the unit of work without a transaction, like the store does
// when transactions are disabled.
type directTx struct{}

func (directTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (directTx) Atomic() bool { return false }

// rollbackTx drops orders written by a failed unit of work, the way a
// store transaction would.
type rollbackTx struct {
	orders *memOrders
}

func (r rollbackTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	before := r.orders.count()
	err := fn(ctx)
	if err != nil {
		r.orders.mu.Lock()
		r.orders.orders = r.orders.orders[:before]
		r.orders.mu.Unlock()
	}
	return err
}

func (rollbackTx) Atomic() bool { return true }

type recordingPublisher struct {
	mu     sync.Mutex
	orders []*domain.Order
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, order *domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.orders = append(p.orders, order)
	return nil
}

var errStoreDown = errors.New("store unavailable")
