package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/metrics"
	"github.com/kriyptor/Market-Place-App/internal/repository"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SalesConsumer folds order.placed events into the vendor sales projection.
type SalesConsumer struct {
	reader  MessageReader
	sales   repository.SalesRepository
	log     *logger.Logger
	metrics *metrics.Metrics
	backoff time.Duration
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewSalesConsumer(reader MessageReader, sales repository.SalesRepository, log *logger.Logger, m *metrics.Metrics) *SalesConsumer {
	if log == nil {
		log = logger.Nop()
	}
	return &SalesConsumer{
		reader:  reader,
		sales:   sales,
		log:     log,
		metrics: m,
		backoff: time.Second,
	}
}

func (c *SalesConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *SalesConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn(context.Background(), "error closing kafka reader", err)
	}
}

func (c *SalesConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.log.Error(ctx, "error reading message", err)
		c.sleep(ctx)
		return
	}

	// The message is committed only once handled; a store failure keeps it
	// in place and the loop tries again.
	for {
		err = c.Handle(ctx, m.Value)
		if err == nil || ctx.Err() != nil {
			break
		}
		c.log.Error(ctx, "failed to apply order event, retrying", err)
		c.sleep(ctx)
	}
	if ctx.Err() != nil {
		return
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.log.Error(ctx, "failed to commit message", err)
	}
}

// Handle applies one event payload. Malformed payloads are logged and
// dropped, not returned, so they cannot stall the partition.
func (c *SalesConsumer) Handle(ctx context.Context, payload []byte) error {
	var event OrderPlaced
	if err := json.Unmarshal(payload, &event); err != nil {
		c.log.Error(ctx, "error parsing message", err)
		c.metrics.RecordSalesApplied("malformed")
		return nil
	}
	if event.Type != OrderPlacedType || event.OrderID.IsZero() {
		c.log.Warn(ctx, fmt.Sprintf("skipping event of type %q", event.Type), nil)
		c.metrics.RecordSalesApplied("skipped")
		return nil
	}

	ctx = c.log.WithField(ctx, "order_id", event.OrderID.Hex())
	for _, share := range event.VendorShares() {
		err := c.sales.ApplyOrder(ctx, event.OrderID, share.VendorID, share.Units, share.Revenue)
		switch {
		case errors.Is(err, repository.ErrAlreadyProcessed):
			c.metrics.RecordSalesApplied("duplicate")
		case err != nil:
			c.metrics.RecordSalesApplied("failed")
			return fmt.Errorf("apply vendor %s: %w", share.VendorID.Hex(), err)
		default:
			c.metrics.RecordSalesApplied("applied")
		}
	}

	c.log.Debug(ctx, "order applied to vendor sales")
	return nil
}

func (c *SalesConsumer) sleep(ctx context.Context) {
	t := time.NewTimer(c.backoff)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
