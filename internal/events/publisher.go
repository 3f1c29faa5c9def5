package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
}

func NewKafkaPublisher(writer MessageWriter, log *logger.Logger, m *metrics.Metrics) *KafkaPublisher {
	if log == nil {
		log = logger.Nop()
	}
	p := &KafkaPublisher{
		writer:  writer,
		timeout: 5 * time.Second,
		log:     log,
		metrics: m,
	}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-order-events",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Event(context.Background(), levelFor(to)).
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return p
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	event := NewOrderPlaced(order)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID.Hex()), // order id keeps an order's events on one partition
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(OrderPlacedType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return struct{}{}, p.writer.WriteMessages(writeCtx, msg)
	})
	switch {
	case err == nil:
		p.metrics.RecordEventPublished("published")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		p.metrics.RecordEventPublished("breaker_open")
		return fmt.Errorf("publish order event: %w", err)
	default:
		p.metrics.RecordEventPublished("failed")
		return fmt.Errorf("publish order event: %w", err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func levelFor(state gobreaker.State) zerolog.Level {
	if state == gobreaker.StateOpen {
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}
