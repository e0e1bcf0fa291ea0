package broker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPDialer returns a DialFunc for a RabbitMQ broker. Each call opens a
// connection and channel, declares the durable queue and registers a
// manual-ack consumer.
func AMQPDialer(url, queue string) DialFunc {
	return func(ctx context.Context) (Session, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("connect to broker: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("open channel: %w", err)
		}

		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", queue, err)
		}

		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("register consumer: %w", err)
		}

		s := &amqpSession{
			conn:       conn,
			ch:         ch,
			deliveries: make(chan Delivery),
			closed:     make(chan error, 1),
			done:       make(chan struct{}),
		}

		// An unexpected connection close also closes msgs, so the
		// supervisor sees the session end either way; the notify channel
		// carries the underlying error.
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		go func() {
			if err := <-connClosed; err != nil {
				s.closed <- err
			}
		}()

		go forwardDeliveries(msgs, s.deliveries, s.done)

		return s, nil
	}
}

// forwardDeliveries adapts the amqp stream to the supervisor's Delivery
// channel. The done channel unblocks a forward that is in flight when the
// session is closed with nobody left to receive.
func forwardDeliveries(msgs <-chan amqp.Delivery, out chan<- Delivery, done <-chan struct{}) {
	defer close(out)
	for d := range msgs {
		select {
		case out <- &amqpDelivery{d: d}:
		case <-done:
			return
		}
	}
}

type amqpSession struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	deliveries chan Delivery
	closed     chan error
	done       chan struct{}
	closeOnce  sync.Once
}

func (s *amqpSession) Deliveries() <-chan Delivery { return s.deliveries }

func (s *amqpSession) Closed() <-chan error { return s.closed }

func (s *amqpSession) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.ch.Close()
	return s.conn.Close()
}

type amqpDelivery struct {
	d amqp.Delivery
}

func (a *amqpDelivery) Body() []byte { return a.d.Body }

func (a *amqpDelivery) Ack() error { return a.d.Ack(false) }

func (a *amqpDelivery) Nack(requeue bool) error { return a.d.Nack(false, requeue) }
