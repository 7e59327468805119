// Package broker publishes auction events to a RabbitMQ topic exchange.
package broker

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"auction/internal/events"
	"auction/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	Exchange         = "auction_events"
	KeyBidPlaced     = "auction.bid_placed"
	KeyStatusChanged = "auction.status_changed"

	publishTimeout = 5 * time.Second
	queueSize      = 256
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type message struct {
	key  string
	body []byte
}

// Publisher implements events.Emitter. Events are queued and published by a
// single goroutine, so per-auction order is kept and callers never wait on
// the network. A full queue drops the event.
type Publisher struct {
	ch    Channel
	conn  io.Closer
	queue chan message
	wg    sync.WaitGroup
	once  sync.Once

	mu     sync.RWMutex
	closed bool
}

// Dial connects to url and declares the exchange.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	publisher, err := NewPublisher(ch, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return publisher, nil
}

// NewPublisher declares the topic exchange on ch and starts publishing.
// conn may be nil.
func NewPublisher(ch Channel, conn io.Closer) (*Publisher, error) {
	if err := ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return nil, err
	}
	p := &Publisher{
		ch:    ch,
		conn:  conn,
		queue: make(chan message, queueSize),
	}
	p.wg.Add(1)
	go p.loop()
	return p, nil
}

func (p *Publisher) EmitPriceChanged(event events.PriceChanged) {
	p.enqueue(KeyBidPlaced, events.Envelope{Type: events.TypeBidPlaced, Data: event})
}

func (p *Publisher) EmitStatusChanged(event events.StatusChanged) {
	p.enqueue(KeyStatusChanged, events.Envelope{Type: events.TypeAuctionStatus, Data: event})
}

func (p *Publisher) enqueue(key string, envelope events.Envelope) {
	body, err := json.Marshal(envelope)
	if err != nil {
		logger.Error("failed to encode broker event", map[string]any{"key": key, "error": err.Error()})
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		logger.Warn("broker closed, event dropped", map[string]any{"key": key})
		return
	}
	select {
	case p.queue <- message{key: key, body: body}:
	default:
		logger.Warn("broker queue full, event dropped", map[string]any{"key": key})
	}
}

func (p *Publisher) loop() {
	defer p.wg.Done()
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := p.ch.PublishWithContext(ctx,
			Exchange, // exchange
			msg.key,  // routing key
			false,    // mandatory
			false,    // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now().UTC(),
				Body:         msg.body,
			})
		cancel()
		if err != nil {
			logger.Error("failed to publish auction event", map[string]any{"key": msg.key, "error": err.Error()})
		}
	}
}

// Close flushes queued events and closes the channel and connection.
// Events emitted after Close are dropped.
func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
		err = p.ch.Close()
		if p.conn != nil {
			if cerr := p.conn.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
