package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventStockInbound  = "inventory.stock.inbound"
	EventStockOutbound = "inventory.stock.outbound"
	EventStockAdjusted = "inventory.stock.adjusted"
	EventStocktake     = "inventory.stocktake.recorded"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.New().String()
}

// StockMovedEvent is published after a committed inbound or outbound mutation.
type StockMovedEvent struct {
	ProductNumber string     `json:"product_number"`
	LotNumber     string     `json:"lot_number"`
	Quantity      int        `json:"quantity"`
	LotStock      int        `json:"lot_stock"`
	TotalStock    int        `json:"total_stock"`
	MaxExpiry     *time.Time `json:"max_expiry,omitempty"`
	Actor         string     `json:"actor,omitempty"`
}

// StocktakeEvent is published after a stocktake marker is recorded.
type StocktakeEvent struct {
	TakenAt time.Time `json:"taken_at"`
	Actor   string    `json:"actor,omitempty"`
}

// StockAdjustedEvent is published after a committed administrative stock override.
type StockAdjustedEvent struct {
	ProductNumber string `json:"product_number"`
	OldStock      int    `json:"old_stock"`
	NewStock      int    `json:"new_stock"`
	OldValueStock string `json:"old_value_stock"`
	NewValueStock string `json:"new_value_stock"`
	Actor         string `json:"actor,omitempty"`
}
