package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/braincreator/flow-masters/internal/shared/metrics"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Routing keys
const (
	ProjectStatusChanged = "project.status_changed"
	MilestoneApproved    = "milestone.approved"
	TemplateApplied      = "template.applied"
	OrderCreated         = "order.created"
	OrderPaid            = "order.paid"
	AchievementAwarded   = "achievement.awarded"
	CourseCreated        = "course.created"
)

// Envelope is the message body on the wire.
type Envelope struct {
	ID         string    `json:"id"`
	RoutingKey string    `json:"routing_key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher publishes domain events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close()
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close()                                      {}

// AMQPPublisher publishes to a durable topic exchange.
type AMQPPublisher struct {
	exchange string
	logger   *zap.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPPublisher{
		exchange: exchange,
		logger:   logger,
		conn:     conn,
		channel:  ch,
	}, nil
}

// Publish sends one event. amqp channels are not safe for concurrent use.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(Envelope{
		ID:         uuid.New().String(),
		RoutingKey: routingKey,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		metrics.IncrementEventsPublished(routingKey, "failed")
		p.logger.Warn("Failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
		return err
	}
	metrics.IncrementEventsPublished(routingKey, "ok")
	return nil
}

func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Envelope
}

func (r *Recorder) Publish(_ context.Context, routingKey string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Envelope{RoutingKey: routingKey, OccurredAt: time.Now().UTC(), Payload: payload})
	return nil
}

func (r *Recorder) Close() {}

// Keys returns the routing keys in publish order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}
