// Package invalidation refreshes the catalog view when products change
// elsewhere. Admin CRUD runs in a separate system; it publishes product
// events to Kafka and this consumer answers each one with a controller
// reload so the storefront never shows a deleted or re-priced item for
// long.
package invalidation

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"
)

// Reloader re-issues the current catalog query. Satisfied by
// catalog.Controller.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ProductEvent is the subset of the admin event payload worth logging.
// Unknown shapes still trigger a reload; the event type is advisory.
type ProductEvent struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
}

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Run consumes product events until ctx is canceled, reloading the catalog
// after each one. Reload failures are logged and the loop keeps going; the
// controller already holds last-known-good state.
func (c *Consumer) Run(ctx context.Context, reloader Reloader) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[Invalidation] Error reading message: %v", err)
				continue
			}

			Handle(ctx, reloader, msg.Value)
		}
	}
}

// Handle processes one raw event payload.
func Handle(ctx context.Context, reloader Reloader, value []byte) {
	var event ProductEvent
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Invalidation] Unparseable product event, reloading anyway: %v", err)
	} else if event.Type != "" {
		log.Printf("[Invalidation] Product event %s (product %s)", event.Type, event.ProductID)
	}

	if err := reloader.Reload(ctx); err != nil {
		log.Printf("[Invalidation] Reload failed: %v", err)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
