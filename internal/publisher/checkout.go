package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mpetrov/cartkeeper/internal/domain"
)

const Topic = "cart-checkout"

// Writer is the slice of kafka.Writer the publisher needs. Tests substitute a
// recording implementation.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// CheckoutPublisher hands a cart snapshot off to the downstream checkout
// pipeline. The cart engine does not implement checkout itself; it only
// serializes the snapshot and lets go of it.
type CheckoutPublisher struct {
	writer Writer
	log    *zap.Logger
}

func NewCheckoutPublisher(log *zap.Logger, brokers ...string) *CheckoutPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &CheckoutPublisher{writer: w, log: log}
}

// NewWithWriter wires a custom writer; used by tests.
func NewWithWriter(w Writer, log *zap.Logger) *CheckoutPublisher {
	return &CheckoutPublisher{writer: w, log: log}
}

type checkoutEvent struct {
	CheckoutID  string      `json:"checkout_id"`
	UserID      string      `json:"user_id"`
	Items       domain.Cart `json:"items"`
	TotalAmount float64     `json:"total_amount"`
	Currency    string      `json:"currency"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Publish emits the snapshot keyed by a fresh checkout id and returns that id.
func (p *CheckoutPublisher) Publish(ctx context.Context, identity string, items domain.Cart) (string, error) {
	event := checkoutEvent{
		CheckoutID:  uuid.New().String(),
		UserID:      identity,
		Items:       items,
		TotalAmount: items.Subtotal(),
		Currency:    "USD",
		CreatedAt:   time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.CheckoutID), // checkout_id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("checkout_requested")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to publish checkout event: %w", err)
	}

	p.log.Info("published checkout snapshot",
		zap.String("checkout_id", event.CheckoutID),
		zap.String("identity", identity),
		zap.Int("items", len(items)),
	)
	return event.CheckoutID, nil
}
