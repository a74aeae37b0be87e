// Package worker archives recorded results and reports alerts off the bus.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/opensource-finance/fraudguard/internal/bus"
	"github.com/opensource-finance/fraudguard/internal/domain"
)

// AlertFunc is called for every flagged record. It must not block for long.
type AlertFunc func(ctx context.Context, ev domain.RecordedEvent)

// Worker consumes TopicResultRecorded and TopicAlert from the event bus.
type Worker struct {
	bus     domain.EventBus
	repo    domain.Repository
	onAlert AlertFunc
	logger  *slog.Logger

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc

	archived atomic.Int64
	failed   atomic.Int64
	alerts   atomic.Int64
}

// NewWorker creates an archive worker. A nil repository means records are
// only counted, not stored.
func NewWorker(eventBus domain.EventBus, repo domain.Repository, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    eventBus,
		repo:   repo,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnAlert registers a callback for flagged records. Call before Start.
func (w *Worker) OnAlert(fn AlertFunc) {
	w.onAlert = fn
}

// Start subscribes to the dashboard scope.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	recorded, err := w.bus.Subscribe(w.ctx, domain.ScopeDashboard, domain.TopicResultRecorded, w.handleRecorded)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicResultRecorded, err)
	}
	w.subscriptions = append(w.subscriptions, recorded)

	alerts, err := w.bus.Subscribe(w.ctx, domain.ScopeDashboard, domain.TopicAlert, w.handleAlert)
	if err != nil {
		_ = recorded.Unsubscribe()
		w.subscriptions = nil
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicAlert, err)
	}
	w.subscriptions = append(w.subscriptions, alerts)

	w.logger.Info("archive worker started",
		"archiving", w.repo != nil,
	)
	return nil
}

func (w *Worker) handleRecorded(ctx context.Context, msg *domain.Message) error {
	ev, err := bus.DecodeRecorded(msg)
	if err != nil {
		w.failed.Add(1)
		return err
	}

	if w.repo == nil {
		w.archived.Add(1)
		return nil
	}

	if err := w.repo.SaveResult(ctx, ev.SessionID, &ev.Record); err != nil {
		w.failed.Add(1)
		w.logger.Error("failed to archive result",
			"session_id", ev.SessionID,
			"record_id", ev.Record.ID,
			"trace_id", ev.TraceID,
			"error", err,
		)
		return err
	}

	w.archived.Add(1)
	w.logger.Debug("result archived",
		"session_id", ev.SessionID,
		"record_id", ev.Record.ID,
		"trace_id", ev.TraceID,
	)
	return nil
}

func (w *Worker) handleAlert(ctx context.Context, msg *domain.Message) error {
	ev, err := bus.DecodeRecorded(msg)
	if err != nil {
		return err
	}

	w.alerts.Add(1)
	w.logger.Warn("fraud alert",
		"session_id", ev.SessionID,
		"user", ev.UserEmail,
		"record_id", ev.Record.ID,
		"kind", ev.Record.Kind,
		"probability", ev.Record.Probability,
		"trace_id", ev.TraceID,
	)

	if w.onAlert != nil {
		w.onAlert(ctx, ev)
	}
	return nil
}

// Stop unsubscribes and cancels in-flight handlers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			w.logger.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.logger.Info("archive worker stopped",
		"archived", w.archived.Load(),
		"failed", w.failed.Load(),
		"alerts", w.alerts.Load(),
	)
	return nil
}

// Stats is a snapshot of worker activity.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Archived          int64    `json:"archived"`
	Failed            int64    `json:"failed"`
	Alerts            int64    `json:"alerts"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	w.mu.Unlock()

	return Stats{
		SubscriptionCount: len(topics),
		Topics:            topics,
		Archived:          w.archived.Load(),
		Failed:            w.failed.Load(),
		Alerts:            w.alerts.Load(),
	}
}
