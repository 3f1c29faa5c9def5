package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kriyptor/Market-Place-App/internal/apperr"
	"github.com/kriyptor/Market-Place-App/internal/cache"
	"github.com/kriyptor/Market-Place-App/internal/config"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	buyerToken  = "buyer-token"
	vendorToken = "vendor-token"
)

var (
	buyerID  = primitive.NewObjectID()
	vendorID = primitive.NewObjectID()
)

type stubAccounts struct {
	signUp func(service.SignUpInput) (*domain.User, error)
}

func (s *stubAccounts) Identity(_ context.Context, token string) (domain.Identity, error) {
	switch token {
	case buyerToken:
		return domain.Identity{UserID: buyerID, Role: domain.RoleBuyer}, nil
	case vendorToken:
		return domain.Identity{UserID: vendorID, Role: domain.RoleVendor}, nil
	}
	return domain.Identity{}, apperr.New(apperr.CodeUnauthorized, "Invalid token")
}

func (s *stubAccounts) SignUp(_ context.Context, in service.SignUpInput) (*domain.User, error) {
	if s.signUp != nil {
		return s.signUp(in)
	}
	return &domain.User{ID: primitive.NewObjectID(), UserName: in.UserName, Email: in.Email, PasswordHash: "hash"}, nil
}

func (s *stubAccounts) SignIn(_ context.Context, in service.SignInInput) (*service.SignInResult, error) {
	if in.Password != "secret1" {
		return nil, apperr.New(apperr.CodeUnauthorized, "Invalid credentials!")
	}
	return &service.SignInResult{Token: buyerToken, User: &domain.User{ID: buyerID, Email: in.Email}}, nil
}

type stubCart struct {
	mu            sync.Mutex
	cart          *domain.Cart
	adjust        *domain.AdjustResult
	err           error
	checkouts     int
	lastDelta     *int
	lastCheckout  service.CheckoutOptions
	checkoutError error
	panicOnGet    bool
}

func (s *stubCart) GetCart(_ context.Context, _ primitive.ObjectID) (*domain.Cart, error) {
	if s.panicOnGet {
		panic("boom")
	}
	return s.cart, s.err
}

func (s *stubCart) AddItem(_ context.Context, _ primitive.ObjectID, _ service.AddItemInput) (*domain.Cart, error) {
	return s.cart, s.err
}

func (s *stubCart) SetQuantityDelta(_ context.Context, _ primitive.ObjectID, _ string, delta *int) (*domain.AdjustResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDelta = delta
	return s.adjust, s.err
}

func (s *stubCart) RemoveItem(_ context.Context, _ primitive.ObjectID, _ string) (*domain.Cart, error) {
	return s.cart, s.err
}

func (s *stubCart) Checkout(_ context.Context, buyer primitive.ObjectID, opts service.CheckoutOptions) (*domain.CheckoutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkouts++
	s.lastCheckout = opts
	if s.checkoutError != nil {
		return nil, s.checkoutError
	}
	return &domain.CheckoutResult{
		Order: &domain.Order{ID: primitive.NewObjectID(), BuyerID: buyer, TotalAmount: domain.MustMoney("42.50")},
		Cart:  domain.NewEmptyCart(buyer, s.cart.CreatedAt),
	}, nil
}

func (s *stubCart) checkoutCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkouts
}

type stubOrders struct {
	list      *domain.OrderList
	lastPage  domain.Page
	lastOwner primitive.ObjectID
}

func (s *stubOrders) BuyerOrders(_ context.Context, id primitive.ObjectID, page domain.Page) (*domain.OrderList, error) {
	s.lastOwner, s.lastPage = id, page
	return s.list, nil
}

func (s *stubOrders) VendorOrders(_ context.Context, id primitive.ObjectID, page domain.Page) (*domain.OrderList, error) {
	s.lastOwner, s.lastPage = id, page
	return s.list, nil
}

func (s *stubOrders) VendorSales(_ context.Context, id primitive.ObjectID) (*domain.VendorSales, error) {
	return &domain.VendorSales{VendorID: id, OrdersCount: 2, UnitsSold: 5, Revenue: domain.MustMoney("99.95")}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, _ primitive.ObjectID, orderID string, in service.UpdateStatusInput) (*domain.Order, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, apperr.Validation("Invalid order ID format")
	}
	return &domain.Order{ID: id, OrderStatus: in.OrderStatus}, nil
}

type stubProducts struct {
	list *domain.ProductList
}

func (s *stubProducts) List(context.Context, domain.Page) (*domain.ProductList, error) {
	return s.list, nil
}

func (s *stubProducts) Get(_ context.Context, id string) (*domain.Product, error) {
	return nil, apperr.NotFound("Product not found!")
}

func (s *stubProducts) Create(_ context.Context, vendor primitive.ObjectID, in service.CreateProductInput) (*domain.Product, error) {
	return &domain.Product{ID: primitive.NewObjectID(), Name: in.Name, VendorID: vendor}, nil
}

func (s *stubProducts) Update(context.Context, primitive.ObjectID, string, service.UpdateProductInput) (*domain.Product, error) {
	return nil, apperr.New(apperr.CodeForbidden, "Insufficient permissions")
}

func (s *stubProducts) Delete(context.Context, primitive.ObjectID, string) error {
	return nil
}

type testServer struct {
	handler  http.Handler
	accounts *stubAccounts
	cart     *stubCart
	orders   *stubOrders
	products *stubProducts
}

func newTestServer(t *testing.T, store cache.IdempotencyStore, checks map[string]HealthCheck) *testServer {
	t.Helper()
	ts := &testServer{
		accounts: &stubAccounts{},
		cart:     &stubCart{cart: domain.NewEmptyCart(buyerID, testTime)},
		orders:   &stubOrders{list: &domain.OrderList{}},
		products: &stubProducts{list: &domain.ProductList{}},
	}
	ts.handler = NewRouter(RouterDeps{
		App:          config.AppConfig{APIBaseURL: "/api/v1"},
		HTTP:         config.HTTPConfig{MaxRequestBodySize: 1 << 20},
		Gatherer:     prometheus.NewRegistry(),
		Accounts:     ts.accounts,
		Cart:         ts.cart,
		Orders:       ts.orders,
		Products:     ts.products,
		Idempotency:  store,
		HealthChecks: checks,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
	Details    map[string]any  `json:"details"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}
