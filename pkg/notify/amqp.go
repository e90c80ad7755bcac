package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ghmirror/pkg/logger"
)

// AMQPConfig addresses the exchange crawl events are published to
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// publisher is the part of *amqp.Channel used for publishing
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events as JSON messages to a topic exchange
type AMQPPublisher struct {
	conn       *amqp.Connection
	channel    publisher
	exchange   string
	routingKey string
	logger     logger.Logger
}

// NewAMQPPublisher connects to the broker and declares the exchange
func NewAMQPPublisher(cfg AMQPConfig, log logger.Logger) (*AMQPPublisher, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.InfoWithFields("connected to amqp broker", map[string]interface{}{
		"exchange":    cfg.Exchange,
		"routing_key": cfg.RoutingKey,
	})

	p := newAMQPPublisher(ch, cfg.Exchange, cfg.RoutingKey, log)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch publisher, exchange, routingKey string, log logger.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     log,
	}
}

// Notify publishes e as a persistent JSON message
func (p *AMQPPublisher) Notify(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         "ghmirror.crawl.finished",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.DebugWithFields("published crawl event", map[string]interface{}{
		"repository": e.Repository,
		"succeeded":  e.Succeeded,
	})
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
