// Package bus carries recorded results from the API to background workers.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

var (
	errScopeRequired = errors.New("scope is required")
	errClosed        = errors.New("bus is closed")
)

// New creates an event bus from configuration.
// "channel" stays in process; "nats" fans out across nodes.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "", "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// PublishRecorded announces a recorded result on the dashboard scope, and
// raises an alert as well when the record was flagged.
func PublishRecorded(ctx context.Context, b domain.EventBus, ev domain.RecordedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.Publish(ctx, domain.ScopeDashboard, domain.TopicResultRecorded, payload); err != nil {
		return err
	}
	if ev.Record.IsFraud() {
		return b.Publish(ctx, domain.ScopeDashboard, domain.TopicAlert, payload)
	}
	return nil
}

// DecodeRecorded unpacks a RecordedEvent from a bus message.
func DecodeRecorded(msg *domain.Message) (domain.RecordedEvent, error) {
	var ev domain.RecordedEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return ev, fmt.Errorf("failed to decode %s message %s: %w", msg.Topic, msg.ID, err)
	}
	return ev, nil
}
