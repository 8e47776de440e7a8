package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"salesgenius/internal/config"
	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const maxDialDelay = 60 * time.Second

type DialOptions struct {
	URL           string
	RetryAttempts int
	Delay         time.Duration
}

// DialWithRetry connects to RabbitMQ with exponential backoff. It gives up
// when ctx is cancelled.
func DialWithRetry(ctx context.Context, opts DialOptions, log zerolog.Logger) (*amqp091.Connection, error) {
	var lastErr error
	for i := 1; i <= opts.RetryAttempts; i++ {
		conn, err := amqp091.Dial(opts.URL)
		if err == nil {
			if i > 1 {
				log.Info().Int("attempt", i).Msg("rabbitmq connected")
			}
			return conn, nil
		}
		lastErr = err

		sleep := opts.Delay * time.Duration(math.Pow(2, float64(i-1)))
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}
		log.Warn().Err(err).Int("attempt", i).Dur("sleep", sleep).Msg("rabbitmq dial failed")

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("rabbitmq dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("rabbitmq: no connection after %d attempts: %w", opts.RetryAttempts, lastErr)
}

// RabbitPublisher publishes envelopes to a durable topic exchange.
type RabbitPublisher struct {
	conn     *amqp091.Connection
	exchange string
	log      zerolog.Logger
}

func NewRabbitPublisher(ctx context.Context, url, exchange string, log zerolog.Logger) (*RabbitPublisher, error) {
	conn, err := DialWithRetry(ctx, DialOptions{URL: url, RetryAttempts: 5, Delay: time.Second}, log)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, exchange: exchange, log: log}, nil
}

func (r *RabbitPublisher) Publish(ctx context.Context, key string, msg entities.Envelope) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	msgID := msg.Meta.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	err = ch.PublishWithContext(ctx, r.exchange, key, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msgID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err == nil {
		r.log.Debug().Str("key", key).Str("exchange", r.exchange).Msg("event published")
	}
	return err
}

func (r *RabbitPublisher) Close() error {
	return r.conn.Close()
}

// KafkaPublisher writes envelopes to one topic, keyed by account.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("kafka: brokers and topic are required")
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, msg entities.Envelope) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:     []byte(msg.Meta.AccountID),
		Value:   body,
		Headers: []kafka.Header{{Key: "routing_key", Value: []byte(key)}},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher only logs. It is used when no broker is configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, key string, msg entities.Envelope) error {
	p.log.Info().Str("key", key).Str("event_id", msg.Meta.ID).Str("account_id", msg.Meta.AccountID).Msg("event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// NewPublisher picks RabbitMQ, then Kafka, then the log fallback. A broker
// that cannot be reached degrades to the fallback.
func NewPublisher(ctx context.Context, cfg *config.Config, log zerolog.Logger) interfaces.EventPublisher {
	if cfg.RabbitMQURL != "" {
		p, err := NewRabbitPublisher(ctx, cfg.RabbitMQURL, cfg.RabbitMQExchange, log)
		if err == nil {
			log.Info().Str("exchange", cfg.RabbitMQExchange).Msg("events: rabbitmq")
			return p
		}
		log.Error().Err(err).Msg("events: rabbitmq unavailable, using log fallback")
		return NewLogPublisher(log)
	}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		p, err := NewKafkaPublisher(brokers, cfg.KafkaTopic)
		if err == nil {
			log.Info().Str("topic", cfg.KafkaTopic).Msg("events: kafka")
			return p
		}
		log.Error().Err(err).Msg("events: kafka misconfigured, using log fallback")
	}
	return NewLogPublisher(log)
}

// NewEnvelope stamps a fresh event id and time.
func NewEnvelope(eventType, accountID string, payload any) entities.Envelope {
	return entities.Envelope{
		Meta: entities.EventMeta{
			ID:         uuid.NewString(),
			Type:       eventType,
			AccountID:  accountID,
			OccurredAt: time.Now().UTC(),
		},
		Payload: payload,
	}
}
