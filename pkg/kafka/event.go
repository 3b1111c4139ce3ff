package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for every message published to Kafka. Data holds the
// aggregate-specific payload and is decoded by consumers with DecodeData.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	SellerID      int64             `json:"seller_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// envelopeVersion is bumped when the Event layout changes incompatibly.
const envelopeVersion = 1

// NewEvent wraps data in an envelope with a fresh id and a UTC timestamp.
func NewEvent(eventType string, aggregateID int64, aggregateType, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   strconv.FormatInt(aggregateID, 10),
		AggregateType: aggregateType,
		Version:       envelopeVersion,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          raw,
	}, nil
}

// WithSeller tags the event with the seller that owns the aggregate.
func (e *Event) WithSeller(sellerID int64) *Event {
	e.SellerID = sellerID
	return e
}

func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// headers lists the envelope fields copied onto the Kafka message so
// consumers can route without decoding the value.
func (e *Event) headers() map[string]string {
	h := map[string]string{
		"event_type": e.EventType,
		"source":     e.Source,
	}
	if e.SellerID != 0 {
		h["seller_id"] = strconv.FormatInt(e.SellerID, 10)
	}
	if e.CorrelationID != "" {
		h["correlation_id"] = e.CorrelationID
	}
	return h
}

// DecodeEvent parses a message value. Data is left raw; use DecodeData.
func DecodeEvent(value []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(value, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

// DecodeData decodes the payload into target.
func (e *Event) DecodeData(target any) error {
	return json.Unmarshal(e.Data, target)
}
