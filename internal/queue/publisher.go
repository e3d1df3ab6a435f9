package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	// dialTimeout bounds connect plus AMQP handshake, further capped by
	// the publishing request's context.
	dialTimeout = 2 * time.Second

	// redialBackoff is how long publishes are dropped after a failed dial.
	redialBackoff = 5 * time.Second
)

// ErrBrokerUnavailable is returned while the publisher has no connection
// and is not going to dial for this call: either another call is dialing
// or the last dial failed less than redialBackoff ago.
var ErrBrokerUnavailable = errors.New("event broker unavailable")

// Publisher sends reservation events to QueueName as persistent JSON
// messages.  The connection is opened on first use and re-dialled after
// a failure.  Only one call dials at a time, outside the lock, so a
// broker that hangs costs at most one request its context.  Errors are
// logged and returned so callers may ignore them.
type Publisher struct {
	url string
	log logrus.FieldLogger

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	dialing bool
	retryAt time.Time
	now     func() time.Time
}

func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	return &Publisher{
		url: url,
		log: log.WithField("component", "event-publisher"),
		now: time.Now,
	}
}

// contextDial dials with ctx and leaves a deadline on the socket for the
// AMQP handshake.  amqp clears it once the connection is open.
func contextDial(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		ctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		deadline, _ := ctx.Deadline()
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Dial:      contextDial(ctx),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("queue declare: %w", err)
	}
	return conn, ch, nil
}

// channel returns an open channel, dialing when this call is the one
// allowed to.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	if p.ch != nil && !p.ch.IsClosed() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	if p.dialing || p.now().Before(p.retryAt) {
		p.mu.Unlock()
		return nil, ErrBrokerUnavailable
	}
	p.resetLocked()
	p.dialing = true
	p.mu.Unlock()

	conn, ch, err := p.dial(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing = false
	if err != nil {
		p.retryAt = p.now().Add(redialBackoff)
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) resetLocked() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// drop discards ch after a failed publish unless a newer channel already
// replaced it.
func (p *Publisher) drop(ch *amqp.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		p.resetLocked()
	}
}

// Publish sends ev on the default exchange with the queue name as
// routing key.
func (p *Publisher) Publish(ctx context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := p.channel(ctx)
	if err == nil {
		err = ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Timestamp:    time.Now().UTC(),
			Type:         string(ev.Action),
			Body:         body,
		})
		if err != nil {
			p.drop(ch)
		}
	}
	if err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"event_id":       ev.ID,
			"action":         ev.Action,
			"reservation_id": ev.ReservationID,
		}).Warn("publish reservation event failed")
		return err
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	return err
}
