package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// channel is the subset of *amqp091.Channel the client uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

// Config names the broker objects the bot uses.
type Config struct {
	URL      string
	Exchange string
	Queue    string
	ReplyKey string
	EventKey string
}

// Handler processes one inbound chat message. A returned error requeues it.
type Handler func(ctx context.Context, msg InboundMessage) error

type Client struct {
	url          string
	exchangeName string
	queueName    string
	replyKey     string
	eventKey     string
	logger       *log.Logger

	// dialMu serializes reconnects so concurrent callers share one dial.
	dialMu sync.Mutex
	dial   func() (io.Closer, channel, error)

	mu      sync.Mutex
	conn    io.Closer
	channel channel

	failureCount int64
	state        int32
	lastFailure  time.Time
}

// NewClient dials the broker and declares the exchange and inbound queue.
func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	c := New(cfg, logger)
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// New returns a client that connects on first use, so a broker that is down
// at startup is retried by Consume instead of failing the process.
func New(cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		url:          cfg.URL,
		exchangeName: cfg.Exchange,
		queueName:    cfg.Queue,
		replyKey:     cfg.ReplyKey,
		eventKey:     cfg.EventKey,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	c.dial = c.dialBroker
	return c
}

func (c *Client) log() *log.Logger {
	if c.logger == nil {
		return log.Discard()
	}
	return c.logger
}

func (c *Client) connect() error {
	conn, ch, err := c.dial()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()
	return nil
}

func (c *Client) dialBroker() (io.Closer, channel, error) {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(ch, c.exchangeName, c.queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return conn, ch, nil
}

func setup(ch channel, exchange, queue string) error {
	// Declare exchange
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare inbound queue
	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name, as usual for a direct exchange
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) loaded() channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// current returns the live channel, reconnecting once if it was dropped.
func (c *Client) current() (channel, error) {
	if ch := c.loaded(); ch != nil {
		return ch, nil
	}
	if c.url == "" {
		return nil, errors.New("AMQP not connected")
	}

	c.dialMu.Lock()
	defer c.dialMu.Unlock()
	// Another caller may have reconnected while we waited.
	if ch := c.loaded(); ch != nil {
		return ch, nil
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c.loaded(), nil
}

// drop forgets the current connection so the next call dials again.
func (c *Client) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// PublishExpenseRecorded announces a stored expense on the event routing key.
func (c *Client) PublishExpenseRecorded(ctx context.Context, e core.Entry) error {
	ev := NewExpenseRecordedEvent(e)
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := c.publish(ctx, c.eventKey, ev.EventID, "", body); err != nil {
		return err
	}
	c.log().DebugContext(ctx, "Published expense event",
		log.FieldOperation, log.OpPublish,
		log.FieldLedgerRef, e.Ref,
		"event_id", ev.EventID)
	return nil
}

// PublishReply sends the bot's answer on the reply routing key.
func (c *Client) PublishReply(ctx context.Context, reply ReplyMessage) error {
	body, err := reply.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	return c.publish(ctx, c.replyKey, uuid.NewString(), reply.CorrelationID, body)
}

func (c *Client) publish(ctx context.Context, key, messageID, correlationID string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return errors.New("circuit breaker is open, AMQP publishing suspended")
	}

	ch, err := c.current()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		key,            // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     messageID,
			CorrelationId: correlationID,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.drop()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// Consume delivers inbound messages to handler until ctx is cancelled,
// reconnecting with exponential backoff when the broker goes away.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			c.log().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		c.drop()

		wait := exponentialBackoff(attempt)
		attempt++
		c.log().WarnContext(ctx, "AMQP consumer interrupted, reconnecting",
			log.FieldOperation, log.OpConsume,
			log.FieldError, err,
			"retry_in", wait.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler Handler, started func()) error {
	ch, err := c.current()
	if err != nil {
		return err
	}
	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	started()

	c.log().InfoContext(ctx, "Started consuming chat messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handleDelivery(ctx, d, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler Handler) {
	msg, err := InboundMessageFromJSON(d.Body)
	if err != nil {
		c.log().ErrorContext(ctx, "Failed to decode message",
			log.FieldOperation, log.OpConsume,
			log.FieldError, err)
		d.Nack(false, false) // reject and don't requeue
		return
	}

	if err := handler(ctx, *msg); err != nil {
		c.log().ErrorContext(ctx, "Failed to handle message",
			log.FieldOperation, log.OpConsume,
			log.FieldMessageID, msg.MessageID,
			log.FieldError, err)
		d.Nack(false, true) // reject and requeue
		return
	}

	d.Ack(false)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		last := c.lastFailure
		c.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
