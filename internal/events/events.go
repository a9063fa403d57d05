// Package events publishes domain events (campground and review lifecycle)
// to RabbitMQ. Publishing is best effort: callers log a failure and carry on,
// the request that produced the event is never failed by it.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys.
const (
	CampgroundCreated = "campground.created"
	CampgroundUpdated = "campground.updated"
	CampgroundDeleted = "campground.deleted"
	ReviewCreated     = "review.created"
	ReviewDeleted     = "review.deleted"
)

// DefaultExchange is the topic exchange events go to.
const DefaultExchange = "journeyhub.events"

// Event is the message body. ResourceID names the campground or review;
// ParentID, for review events, names the campground.
type Event struct {
	Type       string    `json:"type"`
	ResourceID string    `json:"resourceId"`
	ParentID   string    `json:"parentId,omitempty"`
	ActorID    string    `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New stamps an event with the current time.
func New(typ, resourceID, actorID string) Event {
	return Event{Type: typ, ResourceID: resourceID, ActorID: actorID, OccurredAt: time.Now().UTC()}
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// AMQPPublisher publishes to a durable topic exchange with the event type as
// routing key. One connection is held for the process. A closed channel is
// reopened and a closed connection is redialed on the next Publish.
type AMQPPublisher struct {
	url      string
	exchange string
	dial     func(url string) (*amqp.Connection, error)

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

var _ Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher dials url and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	p := &AMQPPublisher{url: url, exchange: exchange, dial: amqp.Dial}
	if _, err := p.channel(); err != nil {
		if p.conn != nil {
			p.conn.Close()
		}
		return nil, err
	}
	return p, nil
}

// channel returns an open channel, declaring the exchange on a fresh one.
// A lost connection is redialed first. Callers hold p.mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.closed {
		return nil, errors.New("events: publisher closed")
	}
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		p.ch = nil
		conn, err := p.dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("events: dialing broker: %w", err)
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("events: opening channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	); err != nil {
		ch.Close()
		return nil, fmt.Errorf("events: declaring exchange %s: %w", p.exchange, err)
	}
	p.ch = ch
	return ch, nil
}

// Publish sends e as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: encoding %s: %w", e.Type, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		p.exchange, // exchange
		e.Type,     // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("events: publishing %s: %w", e.Type, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
