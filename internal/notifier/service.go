package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "storeapi/internal/kafka"
	"storeapi/internal/orders"
	"storeapi/internal/redisx"
)

// Dedup filters events that were already handled.
type Dedup interface {
	Seen(ctx context.Context, key string) (bool, error)
}

// Service reacts to placed orders. Sending the actual customer notification
// is out of scope; the handled event is recorded in the log.
type Service struct {
	Dedup Dedup
	Log   *slog.Logger
	Name  string
}

// HandleOrderPlaced is wired as the consumer handler for the placed topic.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	key := fmt.Sprintf(redisx.KeyDedup, s.Name, env.EventID)
	seen, err := s.Dedup.Seen(ctx, key)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	s.Log.Info("order placed",
		"order_id", p.OrderID,
		"user_id", p.UserID,
		"items", len(p.Items),
		"total", p.Total,
	)
	return nil
}
