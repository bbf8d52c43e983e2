package tickproc

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"positionengine/pkg/types"
)

const (
	reconnectWait    = time.Second
	maxReconnectWait = 30 * time.Second
	reconnectAttempts = -1 // unlimited, matching a long-lived feed subscriber
)

// Feed subscribes to the inbound quote subject and feeds every tick
// into a Processor. It auto-reconnects through the nats.go client,
// waiting reconnectWait between attempts.
type Feed struct {
	conn    *nats.Conn
	subject string
	proc    *Processor
	logger  *slog.Logger
}

// Connect dials the tick-feed NATS server. The connection
// auto-reconnects indefinitely, re-subscribing to the configured
// subject on every reconnect.
func Connect(url, subject string, proc *Processor, logger *slog.Logger) (*Feed, error) {
	logger = logger.With("component", "tickproc_feed")

	conn, err := nats.Connect(url,
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(reconnectAttempts),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("tick feed disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("tick feed reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}

	f := &Feed{conn: conn, subject: subject, proc: proc, logger: logger}
	return f, nil
}

// Subscribe starts consuming ticks. It returns once the subscription
// is established; ticks are processed on the NATS client's own
// dispatch goroutine until Close is called.
func (f *Feed) Subscribe() error {
	_, err := f.conn.Subscribe(f.subject, func(msg *nats.Msg) {
		var ba types.BidAsk
		if err := json.Unmarshal(msg.Data, &ba); err != nil {
			f.logger.Warn("dropping malformed tick", "error", err)
			return
		}
		f.proc.HandleTick(ba)
	})
	return err
}

// Close closes the underlying connection without draining it.
func (f *Feed) Close() {
	if f.conn != nil {
		f.conn.Close()
	}
}
