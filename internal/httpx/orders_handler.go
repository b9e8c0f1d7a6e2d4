package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	kafkax "storeapi/internal/kafka"
	"storeapi/internal/orders"
	"storeapi/internal/redisx"
)

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID string, items []orders.RequestedItem) (*orders.Order, error)
}

type OrderReader interface {
	OrderByID(ctx context.Context, id string) (*orders.Order, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Service  OrderPlacer
	Reader   OrderReader
	Producer Publisher
	Cache    *redis.Client
	Log      *slog.Logger
	Name     string // producer name in event envelopes
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.create)
	r.Get("/orders/{id}", h.get)
}

type orderItemReq struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type createOrderReq struct {
	UserID     string         `json:"userId" validate:"required,uuid4"`
	OrderItems []orderItemReq `json:"orderItems" validate:"min=1,dive"`
}

// orderResponse is an order plus the derived total.
type orderResponse struct {
	orders.Order
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, it := range req.OrderItems {
		if it.UnitPrice.IsNegative() {
			writeError(w, http.StatusBadRequest, "unit price must not be negative")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items := make([]orders.RequestedItem, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		items = append(items, orders.RequestedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	o, err := h.Service.PlaceOrder(ctx, req.UserID, items)
	if err != nil {
		h.writePlacementError(w, err)
		return
	}

	resp := orderResponse{Order: *o, TotalPrice: o.Total()}
	h.cacheOrder(ctx, resp)
	h.publishPlaced(o, r.Header.Get("X-Request-Id"))
	writeJSON(w, http.StatusCreated, resp)
}

// writePlacementError maps each failure variant to a status code. Business
// outcomes are the caller's problem; only storage failures are logged.
func (h *OrdersHandler) writePlacementError(w http.ResponseWriter, err error) {
	var (
		invalidQty   *orders.InvalidQuantityError
		invalidPrice *orders.InvalidUnitPriceError
		noStock      *orders.InsufficientStockError
		noProduct    *orders.ProductNotFoundError
		noUser       *orders.UserNotFoundError
	)
	switch {
	case errors.Is(err, orders.ErrEmptyOrder),
		errors.As(err, &invalidQty),
		errors.As(err, &invalidPrice):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &noStock):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "insufficient stock",
			"details": noStock.Shortages,
		})
	case errors.As(err, &noProduct):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":      "product not found",
			"productIds": noProduct.ProductIDs,
		})
	case errors.As(err, &noUser):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		h.Log.Error("place order", "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Cache != nil {
		key := fmt.Sprintf(redisx.KeyOrderCache, orderID)
		if s, err := h.Cache.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Reader.OrderByID(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		h.Log.Error("get order", "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	resp := orderResponse{Order: *o, TotalPrice: o.Total()}
	h.cacheOrder(ctx, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) cacheOrder(ctx context.Context, resp orderResponse) {
	if h.Cache == nil {
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderCache, resp.ID)
	_ = h.Cache.Set(ctx, key, b, redisx.TTLOrderCache).Err()
}

func (h *OrdersHandler) publishPlaced(o *orders.Order, traceID string) {
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Name,
		TraceID:       traceID,
		CorrelationID: o.ID,
		Payload:       kafkax.MustMarshal(orders.NewOrderPlacedPayload(o)),
	}
	h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
