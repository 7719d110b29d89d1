// Package audit is the append-only event sink shared by every security component.
//
// Record appends synchronously to the Store so a decided stage is durable before
// the request moves on. Critical events are additionally handed to an Alerter
// through a bounded queue; delivery happens on a background worker with a
// per-alert timeout, so a slow or failing sink never stalls the caller. A failed
// delivery is itself recorded as an info event.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"sanctum/pkg/platform/circuit"
	"sanctum/pkg/requestcontext"
)

// Store persists audit events. Implementations expose no update or delete.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Alerter delivers critical events to an external alerting or SIEM sink.
type Alerter interface {
	Alert(ctx context.Context, event Event) error
}

// ErrCircuitOpen is reported for alerts skipped while the sink is unhealthy.
var ErrCircuitOpen = errors.New("alert sink circuit open")

const (
	defaultAlertTimeout = 2 * time.Second
	defaultAlertBuffer  = 1024
	alertBatchSize      = 32
)

type Log struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics

	alerter      Alerter
	alertTimeout time.Duration
	pending      *ringBuffer
	notify       chan struct{}
	breaker      *circuit.Breaker
}

type Option func(*Log)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(l *Log) { l.metrics = m }
}

// WithAlerter enables the critical-event hook. Alerts are delivered only while
// Run is active.
func WithAlerter(a Alerter) Option {
	return func(l *Log) { l.alerter = a }
}

func WithAlertTimeout(d time.Duration) Option {
	return func(l *Log) {
		if d > 0 {
			l.alertTimeout = d
		}
	}
}

// WithAlertBuffer bounds the number of undelivered alerts kept in memory.
func WithAlertBuffer(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.pending = newRingBuffer(n)
		}
	}
}

func WithAlertBreaker(b *circuit.Breaker) Option {
	return func(l *Log) { l.breaker = b }
}

func New(store Store, opts ...Option) (*Log, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	l := &Log{
		store:        store,
		logger:       slog.Default(),
		alertTimeout: defaultAlertTimeout,
		pending:      newRingBuffer(defaultAlertBuffer),
		notify:       make(chan struct{}, 1),
		breaker:      circuit.New("audit-alerts"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Record appends an event of the given type and severity. Request, principal
// and session IDs are taken from ctx. The append is not cancelled with ctx:
// once a caller has decided, its record is committed.
func (l *Log) Record(ctx context.Context, eventType EventType, severity Severity, details map[string]any) error {
	event := Event{
		ID:          uuid.New(),
		Type:        eventType,
		Category:    eventType.Category(),
		Severity:    severity,
		PrincipalID: requestcontext.PrincipalID(ctx),
		SessionID:   requestcontext.SessionID(ctx),
		RequestID:   requestcontext.RequestID(ctx),
		Details:     maps.Clone(details),
		Timestamp:   requestcontext.Now(ctx),
	}
	if p, ok := details["principal_id"].(string); ok && event.PrincipalID == "" {
		event.PrincipalID = p
	}
	if s, ok := details["session_id"].(string); ok && event.SessionID == "" {
		event.SessionID = s
	}
	return l.append(ctx, event)
}

func (l *Log) append(ctx context.Context, event Event) error {
	if err := l.store.Append(context.WithoutCancel(ctx), event); err != nil {
		l.metrics.incAppendFailure()
		l.logger.ErrorContext(ctx, "failed to append audit event",
			"error", err,
			"event_type", string(event.Type),
			"request_id", event.RequestID,
		)
		return fmt.Errorf("append audit event: %w", err)
	}
	l.metrics.incRecorded(event.Category, event.Severity)

	level := slog.LevelInfo
	if event.Severity == SeverityCritical {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "audit",
		"event_type", string(event.Type),
		"severity", string(event.Severity),
		"principal_id", event.PrincipalID,
		"request_id", event.RequestID,
	)

	if event.Severity == SeverityCritical && l.alerter != nil {
		l.enqueueAlert(event)
	}
	return nil
}

func (l *Log) enqueueAlert(event Event) {
	if l.pending.enqueue(event) {
		l.metrics.incAlertDropped()
	}
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Run delivers queued alerts until ctx is cancelled.
func (l *Log) Run(ctx context.Context) error {
	if l.alerter == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.notify:
			l.flushAlerts(ctx)
		}
	}
}

// ErrAlertBacklog is reported while the alert queue is full and new critical
// events push out older undelivered ones.
var ErrAlertBacklog = errors.New("alert queue saturated")

// PendingAlerts reports undelivered alerts.
func (l *Log) PendingAlerts() int { return l.pending.len() }

// AlertQueueHealth fails while the alert queue is at capacity.
func (l *Log) AlertQueueHealth(_ context.Context) error {
	if n := l.PendingAlerts(); n >= l.pending.capacity {
		return fmt.Errorf("%w: %d undelivered", ErrAlertBacklog, n)
	}
	return nil
}

func (l *Log) flushAlerts(ctx context.Context) {
	for {
		batch := l.pending.dequeueBatch(alertBatchSize)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			if ctx.Err() != nil {
				return
			}
			l.deliver(ctx, event)
		}
	}
}

func (l *Log) deliver(ctx context.Context, event Event) {
	if !l.breaker.Allow() {
		l.alertFailed(ctx, event, ErrCircuitOpen)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, l.alertTimeout)
	err := l.alerter.Alert(sendCtx, event)
	cancel()
	if err != nil {
		if _, change := l.breaker.RecordFailure(); change.Opened {
			l.logger.WarnContext(ctx, "alert sink circuit opened", "breaker", l.breaker.Name())
		}
		l.alertFailed(ctx, event, err)
		return
	}
	if _, change := l.breaker.RecordSuccess(); change.Closed {
		l.logger.InfoContext(ctx, "alert sink circuit closed", "breaker", l.breaker.Name())
	}
	l.metrics.incAlertSent()
}

// alertFailed records the failure as an info event; info events never alert,
// so this cannot recurse.
func (l *Log) alertFailed(ctx context.Context, event Event, cause error) {
	l.metrics.incAlertFailed()
	failure := Event{
		ID:          uuid.New(),
		Type:        EventAlertFailed,
		Category:    EventAlertFailed.Category(),
		Severity:    SeverityInfo,
		PrincipalID: event.PrincipalID,
		SessionID:   event.SessionID,
		RequestID:   event.RequestID,
		Details: map[string]any{
			"alert_event_id":   event.ID.String(),
			"alert_event_type": string(event.Type),
			"error":            cause.Error(),
		},
		Timestamp: time.Now(),
	}
	_ = l.append(ctx, failure)
}
