package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels or NATS.
// Every message is published within a scope; subscribers only see their scope.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, scope string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, scope string, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Scope     string            `json:"scope"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `json:"type"`

	ChannelBufferSize int `json:"channelBufferSize"`

	NATSUrl           string `json:"natsUrl"`
	NATSToken         string `json:"natsToken"`
	NATSMaxReconnects int    `json:"natsMaxReconnects"`
	NATSReconnectWait int    `json:"natsReconnectWait"` // seconds

	// NATSQueueGroup makes subscribers on different nodes share one delivery
	NATSQueueGroup string `json:"natsQueueGroup"`
}

// ScopeDashboard is the bus scope all dashboard sessions publish into.
const ScopeDashboard = "dashboard"

// Topic names for the analysis pipeline.
const (
	TopicResultRecorded = "fraudguard.result.recorded"
	TopicAlert          = "fraudguard.alert"
)

// RecordedEvent is the payload of TopicResultRecorded and TopicAlert.
type RecordedEvent struct {
	SessionID string       `json:"sessionId"`
	UserEmail string       `json:"userEmail,omitempty"`
	TraceID   string       `json:"traceId,omitempty"`
	Record    ResultRecord `json:"record"`
}
