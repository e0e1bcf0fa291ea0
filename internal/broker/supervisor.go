package broker

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultQueue is the durable queue the platform publishes to.
	DefaultQueue = "assignment-notifications"

	// DefaultReconnectDelay is the fixed backoff between connection
	// attempts. Deliberately not exponential: a best-effort relay prefers
	// predictable, prompt recovery.
	DefaultReconnectDelay = 5 * time.Second
)

// Delivery is one message handed to the consumer. Ack confirms processing;
// Nack(false) discards permanently.
type Delivery interface {
	Body() []byte
	Ack() error
	Nack(requeue bool) error
}

// Session is an open consumer session on the broker. Closed sends at most
// one value when the underlying connection dies.
type Session interface {
	Deliveries() <-chan Delivery
	Closed() <-chan error
	Close() error
}

// DialFunc establishes a session: connection, channel, queue declaration and
// consumer registration in one step.
type DialFunc func(ctx context.Context) (Session, error)

// Supervisor owns the consumer lifecycle: Disconnected → Connecting →
// Consuming, looping back through Connecting with a fixed backoff whenever
// the session fails. It never terminates on broker errors.
type Supervisor struct {
	dial    DialFunc
	relay   Relay
	clock   clockwork.Clock
	backoff time.Duration
}

func NewSupervisor(dial DialFunc, relay Relay, opts ...Option) *Supervisor {
	s := &Supervisor{
		dial:    dial,
		relay:   relay,
		clock:   clockwork.NewRealClock(),
		backoff: DefaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClock injects a clock, letting tests drive the backoff.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Supervisor) { s.clock = clock }
}

// WithBackoff overrides the fixed reconnect delay.
func WithBackoff(d time.Duration) Option {
	return func(s *Supervisor) { s.backoff = d }
}

// Run consumes until ctx is cancelled. Connection failures and unexpected
// closes are logged and retried after the fixed backoff, indefinitely.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		if err := s.consume(ctx); err != nil {
			slog.Error("Broker session ended", "error", err, "retryIn", s.backoff)
		}

		if ctx.Err() != nil {
			slog.Info("Broker supervisor stopped")
			return
		}

		select {
		case <-s.clock.After(s.backoff):
		case <-ctx.Done():
			slog.Info("Broker supervisor stopped")
			return
		}
	}
}

// consume runs one session from dial to failure. A nil return means ctx was
// cancelled.
func (s *Supervisor) consume(ctx context.Context) error {
	session, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	slog.Info("Connected to broker, consuming")

	deliveries := session.Deliveries()
	closed := session.Closed()

	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			s.handle(d)

		case err := <-closed:
			if err == nil {
				err = errors.New("connection closed")
			}
			return err

		case <-ctx.Done():
			return nil
		}
	}
}

// handle processes one delivery: parse, relay, ack. Malformed messages are
// rejected without requeue so a poison message cannot loop forever.
func (s *Supervisor) handle(d Delivery) {
	n, err := ParseNotification(d.Body())
	if err != nil {
		slog.Warn("Discarding malformed notification", "error", err)
		if nerr := d.Nack(false); nerr != nil {
			slog.Error("Failed to reject message", "error", nerr)
		}
		return
	}

	delivered := s.relay.Relay(n)
	slog.Info("Notification relayed",
		"courseId", n.CourseID, "assignment", n.AssignmentTitle, "clients", delivered)

	if err := d.Ack(); err != nil {
		slog.Error("Failed to ack message", "error", err)
	}
}
