package redisx

import "time"

const (
	// Cached GET /orders/{id} response body: order:{order_id}
	KeyOrderCache = "order:%s"

	// Dedup for event consumers: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
