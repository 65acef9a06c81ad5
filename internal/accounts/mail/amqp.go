package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/idx"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is where the mail worker consumes from.
const DefaultQueue = "mail.outbound"

// Message is the JSON payload published for the mail worker.
type Message struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrSenderClosed is returned once Close has been called.
var ErrSenderClosed = errors.New("mail: sender closed")

// Channel is the slice of *amqp.Channel the sender needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
}

// Dialer opens a channel with the queue declared. Closing the returned
// io.Closer releases the channel and whatever connection backs it.
type Dialer func() (Channel, io.Closer, error)

// AMQPSender publishes each message as a persistent JSON document on a
// durable queue. A channel the broker has closed is replaced on the next
// Send or Ping.
type AMQPSender struct {
	queue string
	dial  Dialer

	mu     sync.Mutex // guards everything below and serialises publishes
	ch     Channel
	closer io.Closer
	closed bool
}

// AMQPDialer dials url on every call and declares queue.
func AMQPDialer(url, queue string) Dialer {
	return func() (Channel, io.Closer, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("mail: amqp dial: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("mail: amqp channel: %w", err)
		}

		// Durable so queued mail survives broker restarts
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("mail: declare queue %s: %w", queue, err)
		}
		return ch, conn, nil
	}
}

// DialAMQP connects to the broker and declares the queue. The first dial
// happens here so a bad URL fails at startup.
func DialAMQP(url, queue string) (*AMQPSender, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	s := NewAMQPSender(AMQPDialer(url, queue), queue)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.channelLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewAMQPSender dials lazily on the first Send or Ping.
func NewAMQPSender(dial Dialer, queue string) *AMQPSender {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQPSender{queue: queue, dial: dial}
}

func (s *AMQPSender) channelLocked() (Channel, error) {
	if s.closed {
		return nil, ErrSenderClosed
	}
	if s.ch != nil && !s.ch.IsClosed() {
		return s.ch, nil
	}
	_ = s.dropLocked()

	ch, closer, err := s.dial()
	if err != nil {
		return nil, err
	}
	s.ch, s.closer = ch, closer
	return ch, nil
}

func (s *AMQPSender) dropLocked() error {
	var err error
	if s.closer != nil {
		err = s.closer.Close()
	}
	s.ch, s.closer = nil, nil
	return err
}

// Ping reports whether a usable channel to the broker exists, redialing
// when the last one was lost.
func (s *AMQPSender) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.channelLocked()
	return err
}

func (s *AMQPSender) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.New("mail: recipient is required")
	}

	now := time.Now().UTC()
	msg := Message{
		ID:        idx.New().String(),
		To:        to,
		Subject:   subject,
		Body:      body,
		CreatedAt: now,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mail: marshal: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    now,
		Body:         payload,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.channelLocked()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", s.queue, false, false, pub)
	if err != nil && (errors.Is(err, amqp.ErrClosed) || ch.IsClosed()) {
		// One retry on a fresh channel, same MessageId
		_ = s.dropLocked()
		if ch, err = s.channelLocked(); err == nil {
			err = ch.PublishWithContext(ctx, "", s.queue, false, false, pub)
		}
	}
	if err != nil {
		return fmt.Errorf("mail: publish: %w", err)
	}
	return nil
}

// Close releases the broker connection. Later sends fail with
// ErrSenderClosed.
func (s *AMQPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.dropLocked()
}
