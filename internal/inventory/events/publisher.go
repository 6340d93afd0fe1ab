// Package events publishes inventory domain events to the message broker.
// Publishing is fire-and-forget after the database transaction commits: a
// broker failure is logged but never rolls back a stock movement.
package events

import (
	"context"

	"github.com/labstock/labstock-backend/pkg/logger"
	"github.com/labstock/labstock-backend/pkg/messaging"
)

// Publisher is the broker-facing interface. Satisfied by
// messaging.Publisher in production and by testutil.MockPublisher in tests.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// InventoryEventPublisher publishes stock movement events
type InventoryEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new event publisher. A nil publisher
// disables event publishing, used when the broker is unavailable.
func NewInventoryEventPublisher(publisher Publisher, log *logger.Logger) *InventoryEventPublisher {
	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log.WithComponent("events"),
	}
}

// StockInbound publishes an inbound movement event
func (p *InventoryEventPublisher) StockInbound(ctx context.Context, event *messaging.StockMovedEvent) {
	p.publish(ctx, messaging.EventStockInbound, event)
}

// StockOutbound publishes an outbound movement event
func (p *InventoryEventPublisher) StockOutbound(ctx context.Context, event *messaging.StockMovedEvent) {
	p.publish(ctx, messaging.EventStockOutbound, event)
}

// StockAdjusted publishes an administrative correction event
func (p *InventoryEventPublisher) StockAdjusted(ctx context.Context, event *messaging.StockAdjustedEvent) {
	p.publish(ctx, messaging.EventStockAdjusted, event)
}

// StocktakeRecorded publishes a stocktake marker event
func (p *InventoryEventPublisher) StocktakeRecorded(ctx context.Context, event *messaging.StocktakeEvent) {
	p.publish(ctx, messaging.EventStocktake, event)
}

func (p *InventoryEventPublisher) publish(ctx context.Context, eventType string, data interface{}) {
	if p == nil || p.publisher == nil {
		return
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
