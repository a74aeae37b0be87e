package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timeout waiting for condition")
}

func TestChannelBus(t *testing.T) {
	bus := NewChannelBus(100)
	defer bus.Close()

	ctx := context.Background()
	scope := domain.ScopeDashboard

	t.Run("PublishAndSubscribe", func(t *testing.T) {
		got := make(chan *domain.Message, 1)
		_, err := bus.Subscribe(ctx, scope, "test.topic", func(ctx context.Context, msg *domain.Message) error {
			got <- msg
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		if err := bus.Publish(ctx, scope, "test.topic", []byte("hello")); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		select {
		case msg := <-got:
			if string(msg.Payload) != "hello" {
				t.Errorf("expected payload 'hello', got '%s'", string(msg.Payload))
			}
			if msg.Scope != scope {
				t.Errorf("expected scope '%s', got '%s'", scope, msg.Scope)
			}
			if msg.ID == "" {
				t.Error("expected message id")
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	})

	t.Run("ScopeIsolation", func(t *testing.T) {
		var received1, received2 atomic.Int32

		bus.Subscribe(ctx, "scope-a", "isolation.topic", func(ctx context.Context, msg *domain.Message) error {
			received1.Add(1)
			return nil
		})
		bus.Subscribe(ctx, "scope-b", "isolation.topic", func(ctx context.Context, msg *domain.Message) error {
			received2.Add(1)
			return nil
		})

		bus.Publish(ctx, "scope-a", "isolation.topic", []byte("msg1"))
		waitUntil(t, func() bool { return received1.Load() == 1 })
		time.Sleep(20 * time.Millisecond)

		if received2.Load() != 0 {
			t.Errorf("scope-b should receive 0 messages, got %d", received2.Load())
		}
	})

	t.Run("RequiresScope", func(t *testing.T) {
		if err := bus.Publish(ctx, "", "topic", []byte("data")); err == nil {
			t.Error("expected error for empty scope")
		}

		_, err := bus.Subscribe(ctx, "", "topic", func(ctx context.Context, msg *domain.Message) error {
			return nil
		})
		if err == nil {
			t.Error("expected error for empty scope")
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		var count atomic.Int32

		sub, _ := bus.Subscribe(ctx, scope, "unsub.topic", func(ctx context.Context, msg *domain.Message) error {
			count.Add(1)
			return nil
		})

		bus.Publish(ctx, scope, "unsub.topic", []byte("msg1"))
		waitUntil(t, func() bool { return count.Load() == 1 })

		sub.Unsubscribe()

		bus.Publish(ctx, scope, "unsub.topic", []byte("msg2"))
		time.Sleep(20 * time.Millisecond)

		if count.Load() != 1 {
			t.Errorf("expected 1 message after unsubscribe, got %d", count.Load())
		}

		bus.mu.RLock()
		_, still := bus.subscriptions[makeKey(scope, "unsub.topic")]
		bus.mu.RUnlock()
		if still {
			t.Error("expected subscription removed from bus")
		}
	})

	t.Run("MultipleSubscribers", func(t *testing.T) {
		var count1, count2 atomic.Int32

		bus.Subscribe(ctx, scope, "multi.topic", func(ctx context.Context, msg *domain.Message) error {
			count1.Add(1)
			return nil
		})
		bus.Subscribe(ctx, scope, "multi.topic", func(ctx context.Context, msg *domain.Message) error {
			count2.Add(1)
			return nil
		})

		bus.Publish(ctx, scope, "multi.topic", []byte("broadcast"))
		waitUntil(t, func() bool { return count1.Load() == 1 && count2.Load() == 1 })
	})

	t.Run("Ping", func(t *testing.T) {
		if err := bus.Ping(ctx); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("SubscriptionTopic", func(t *testing.T) {
		sub, _ := bus.Subscribe(ctx, scope, "my.topic", func(ctx context.Context, msg *domain.Message) error {
			return nil
		})
		if sub.Topic() != "my.topic" {
			t.Errorf("expected topic 'my.topic', got '%s'", sub.Topic())
		}
	})
}

func TestChannelBusDropsWhenFull(t *testing.T) {
	bus := NewChannelBus(1)
	defer bus.Close()

	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	bus.Subscribe(ctx, "s", "slow", func(ctx context.Context, msg *domain.Message) error {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	bus.Publish(ctx, "s", "slow", []byte("1"))
	<-started
	bus.Publish(ctx, "s", "slow", []byte("2")) // fills the queue
	bus.Publish(ctx, "s", "slow", []byte("3")) // dropped

	if got := bus.Dropped(); got != 1 {
		t.Errorf("expected 1 dropped message, got %d", got)
	}
	close(release)
}

func TestChannelBusClose(t *testing.T) {
	bus := NewChannelBus(100)
	ctx := context.Background()

	bus.Subscribe(ctx, "s", "close.topic", func(ctx context.Context, msg *domain.Message) error {
		return nil
	})

	if err := bus.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}

	if err := bus.Publish(ctx, "s", "close.topic", []byte("data")); err == nil {
		t.Error("expected error after close")
	}
	if _, err := bus.Subscribe(ctx, "s", "close.topic", nil); err == nil {
		t.Error("expected subscribe error after close")
	}
	if err := bus.Ping(ctx); err == nil {
		t.Error("expected ping error after close")
	}
}

func TestNewBus(t *testing.T) {
	for _, typ := range []string{"", "channel"} {
		bus, err := New(domain.EventBusConfig{Type: typ, ChannelBufferSize: 50})
		if err != nil {
			t.Fatalf("New(%q) failed: %v", typ, err)
		}
		if _, ok := bus.(*ChannelBus); !ok {
			t.Errorf("expected ChannelBus for type %q", typ)
		}
		bus.Close()
	}

	if _, err := New(domain.EventBusConfig{Type: "kafka"}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestPublishRecorded(t *testing.T) {
	bus := NewChannelBus(10)
	defer bus.Close()
	ctx := context.Background()

	var mu sync.Mutex
	var recorded, alerts []domain.RecordedEvent
	collect := func(dst *[]domain.RecordedEvent) domain.MessageHandler {
		return func(ctx context.Context, msg *domain.Message) error {
			ev, err := DecodeRecorded(msg)
			if err != nil {
				return err
			}
			mu.Lock()
			*dst = append(*dst, ev)
			mu.Unlock()
			return nil
		}
	}
	bus.Subscribe(ctx, domain.ScopeDashboard, domain.TopicResultRecorded, collect(&recorded))
	bus.Subscribe(ctx, domain.ScopeDashboard, domain.TopicAlert, collect(&alerts))

	legit := domain.RecordedEvent{SessionID: "s1", Record: domain.ResultRecord{ID: "TXN001", FraudStatus: domain.StatusNotFraud}}
	fraud := domain.RecordedEvent{SessionID: "s1", Record: domain.ResultRecord{ID: "TXN002", FraudStatus: domain.StatusFraud}}

	if err := PublishRecorded(ctx, bus, legit); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := PublishRecorded(ctx, bus, fraud); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(recorded) == 2 && len(alerts) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if alerts[0].Record.ID != "TXN002" {
		t.Errorf("expected alert for TXN002, got %s", alerts[0].Record.ID)
	}
}

func TestDecodeRecordedRejectsGarbage(t *testing.T) {
	_, err := DecodeRecorded(&domain.Message{ID: "m1", Topic: domain.TopicAlert, Payload: []byte("{")})
	if err == nil {
		t.Error("expected decode error")
	}
}

func TestSubjectFor(t *testing.T) {
	if got := subjectFor(domain.ScopeDashboard, domain.TopicAlert); got != "dashboard.fraudguard.alert" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestChannelBusHighLoad(t *testing.T) {
	bus := NewChannelBus(1000)
	defer bus.Close()

	ctx := context.Background()
	var received atomic.Int32
	const messageCount = 100

	bus.Subscribe(ctx, "load", "load.topic", func(ctx context.Context, msg *domain.Message) error {
		received.Add(1)
		return nil
	})

	for i := 0; i < messageCount; i++ {
		bus.Publish(ctx, "load", "load.topic", []byte("msg"))
	}

	deadline := time.Now().Add(5 * time.Second)
	for received.Load() < messageCount && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if received.Load() != messageCount {
		t.Fatalf("expected %d messages, got %d", messageCount, received.Load())
	}
}
