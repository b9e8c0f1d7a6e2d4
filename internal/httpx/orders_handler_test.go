package httpx_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeapi/internal/httpx"
	"storeapi/internal/orders"
)

const userID = "0b9f9a46-7b3f-4a7a-9f6e-2f6f1d2f9a10"

// memStore implements orders.Store and the read side against maps.
type memStore struct {
	mu     sync.Mutex
	stock  map[string]int
	placed []orders.Order
}

func (m *memStore) StockByProductID(_ context.Context, ids []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, id := range ids {
		if s, ok := m.stock[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (m *memStore) CreateOrder(_ context.Context, o *orders.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.UserID != userID {
		return &orders.UserNotFoundError{UserID: o.UserID}
	}
	totals := make(map[string]int)
	for _, it := range o.Items {
		totals[it.ProductID] += it.Quantity
	}
	var short []orders.StockShortage
	for id, qty := range totals {
		if m.stock[id] < qty {
			short = append(short, orders.StockShortage{ProductID: id, Requested: qty, Available: m.stock[id]})
		}
	}
	if len(short) > 0 {
		return &orders.InsufficientStockError{Shortages: short}
	}
	for id, qty := range totals {
		m.stock[id] -= qty
	}
	o.ID = fmt.Sprintf("order-%d", len(m.placed)+1)
	o.CreatedAt = time.Now().UTC()
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	m.placed = append(m.placed, *o)
	return nil
}

func (m *memStore) OrderByID(_ context.Context, id string) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.placed {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, orders.ErrNotFound
}

type memPublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (p *memPublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, value)
}

func newTestServer(store *memStore, pub *memPublisher) *chi.Mux {
	h := &httpx.OrdersHandler{
		Service:  orders.NewService(store),
		Reader:   store,
		Producer: pub,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Name:     "store-api-test",
	}
	r := httpx.NewRouter()
	h.Register(r)
	return r
}

func post(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrder_Created(t *testing.T) {
	store := &memStore{stock: map[string]int{"p1": 5}}
	pub := &memPublisher{}
	r := newTestServer(store, pub)

	body := fmt.Sprintf(`{"userId":%q,"orderItems":[{"productId":"p1","quantity":2,"unitPrice":19.99}]}`, userID)
	w := post(t, r, "/orders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		ID         string `json:"id"`
		UserID     string `json:"userId"`
		TotalPrice string `json:"totalPrice"`
		OrderItems []struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
			UnitPrice string `json:"unitPrice"`
		} `json:"orderItems"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, userID, resp.UserID)
	require.Len(t, resp.OrderItems, 1)
	assert.Equal(t, "p1", resp.OrderItems[0].ProductID)
	assert.Equal(t, 2, resp.OrderItems[0].Quantity)
	assert.True(t, decimal.RequireFromString(resp.TotalPrice).Equal(decimal.RequireFromString("39.98")))

	assert.Equal(t, 3, store.stock["p1"])

	// one OrderPlaced event published
	require.Len(t, pub.messages, 1)
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(pub.messages[0], &env))
	assert.Equal(t, orders.EventOrderPlaced, env.EventType)
	assert.Equal(t, resp.ID, env.CorrelationID)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	store := &memStore{stock: map[string]int{"p1": 1}}
	pub := &memPublisher{}
	r := newTestServer(store, pub)

	body := fmt.Sprintf(`{"userId":%q,"orderItems":[{"productId":"p1","quantity":2,"unitPrice":"5"}]}`, userID)
	w := post(t, r, "/orders", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error   string                 `json:"error"`
		Details []orders.StockShortage `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient stock", resp.Error)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, orders.StockShortage{ProductID: "p1", Requested: 2, Available: 1}, resp.Details[0])

	assert.Equal(t, 1, store.stock["p1"])
	assert.Empty(t, pub.messages, "failed placement must not publish")
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	store := &memStore{stock: map[string]int{}}
	r := newTestServer(store, &memPublisher{})

	body := fmt.Sprintf(`{"userId":%q,"orderItems":[{"productId":"ghost","quantity":1,"unitPrice":"1"}]}`, userID)
	w := post(t, r, "/orders", body)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ghost")
	assert.Empty(t, store.placed)
}

func TestCreateOrder_UserNotFound(t *testing.T) {
	store := &memStore{stock: map[string]int{"p1": 5}}
	r := newTestServer(store, &memPublisher{})

	body := `{"userId":"59cb2a6e-9a3f-4e1e-8f0d-aaaaaaaaaaaa","orderItems":[{"productId":"p1","quantity":1,"unitPrice":"1"}]}`
	w := post(t, r, "/orders", body)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 5, store.stock["p1"])
}

func TestCreateOrder_BadRequests(t *testing.T) {
	store := &memStore{stock: map[string]int{"p1": 5}}
	r := newTestServer(store, &memPublisher{})

	cases := map[string]string{
		"invalid json":   `{"userId":`,
		"empty items":    fmt.Sprintf(`{"userId":%q,"orderItems":[]}`, userID),
		"missing userId": `{"orderItems":[{"productId":"p1","quantity":1,"unitPrice":"1"}]}`,
		"bad userId":     `{"userId":"not-a-uuid","orderItems":[{"productId":"p1","quantity":1,"unitPrice":"1"}]}`,
		"zero quantity":  fmt.Sprintf(`{"userId":%q,"orderItems":[{"productId":"p1","quantity":0,"unitPrice":"1"}]}`, userID),
		"negative price": fmt.Sprintf(`{"userId":%q,"orderItems":[{"productId":"p1","quantity":1,"unitPrice":"-1"}]}`, userID),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := post(t, r, "/orders", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, 5, store.stock["p1"])
	assert.Empty(t, store.placed)
}

func TestGetOrder(t *testing.T) {
	store := &memStore{stock: map[string]int{"p1": 5}}
	r := newTestServer(store, &memPublisher{})

	body := fmt.Sprintf(`{"userId":%q,"orderItems":[{"productId":"p1","quantity":2,"unitPrice":"2.50"}]}`, userID)
	w := post(t, r, "/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodGet, "/orders/"+created.ID, nil)
	got := httptest.NewRecorder()
	r.ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Contains(t, got.Body.String(), `"totalPrice":"5"`)

	req = httptest.NewRequest(http.MethodGet, "/orders/unknown", nil)
	got = httptest.NewRecorder()
	r.ServeHTTP(got, req)
	require.Equal(t, http.StatusNotFound, got.Code)
}
