package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
)

// Subjects used for the four outbound streams.
const (
	SubjectPositionPersistence  = "positions.persistence"
	SubjectMarginCallHit        = "positions.margin_call"
	SubjectToppingUpDelta       = "positions.topping_up"
	SubjectPendingReadyExecute  = "positions.pending_ready"
)

// NATSPublisher publishes events to a NATS subject per stream, with a
// bounded number of retries guarded by a circuit breaker so a
// persistence-service outage degrades to fast, explicit failures
// instead of blocking the caller indefinitely (and, because the
// caller holds a store write lock while publishing, indefinitely
// stalling every other position in the engine).
type NATSPublisher struct {
	conn    *nats.Conn
	cb      *gobreaker.CircuitBreaker
	logger  *slog.Logger
	retries int
	backoff time.Duration
}

// NewNATSPublisher wires a publisher on top of an already-connected
// NATS connection.
func NewNATSPublisher(conn *nats.Conn, logger *slog.Logger) *NATSPublisher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "event-publisher",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &NATSPublisher{
		conn:    conn,
		cb:      cb,
		logger:  logger.With("component", "events"),
		retries: 3,
		backoff: 50 * time.Millisecond,
	}
}

func (p *NATSPublisher) publish(subject string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", subject, err)
	}

	_, err = p.cb.Execute(func() (any, error) {
		var lastErr error
		for attempt := 0; attempt <= p.retries; attempt++ {
			if attempt > 0 {
				time.Sleep(p.backoff * time.Duration(attempt))
			}
			if err := p.conn.Publish(subject, body); err == nil {
				return nil, nil
			} else {
				lastErr = err
			}
		}
		return nil, fmt.Errorf("publish %s after %d attempts: %w", subject, p.retries+1, lastErr)
	})
	if err != nil {
		p.logger.Error("publish failed", "subject", subject, "error", err)
		return err
	}
	return nil
}

func (p *NATSPublisher) PublishPositionPersistence(e PositionPersistence) error {
	return p.publish(SubjectPositionPersistence, e)
}

func (p *NATSPublisher) PublishMarginCallHit(e MarginCallHit) error {
	return p.publish(SubjectMarginCallHit, e)
}

func (p *NATSPublisher) PublishToppingUpDelta(e ToppingUpDelta) error {
	return p.publish(SubjectToppingUpDelta, e)
}

func (p *NATSPublisher) PublishPendingReadyToExecute(e PendingReadyToExecute) error {
	return p.publish(SubjectPendingReadyExecute, e)
}
