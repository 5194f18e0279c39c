package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"loanapi/internal/config"
	"loanapi/internal/model"
)

var (
	// ErrBrokerUnavailable is returned when the event log did not accept the event.
	ErrBrokerUnavailable = errors.New("event broker unavailable")
	// ErrTimeout is returned when the broker did not acknowledge within the publish timeout.
	ErrTimeout = errors.New("event publish timed out")
)

// Publisher appends submission events to the event log.
type Publisher interface {
	// Publish blocks until the event is acknowledged by all in-sync replicas
	// or fails. Delivery is at-least-once.
	Publish(ctx context.Context, event model.SubmissionEvent) error
}

// MessageWriter is the subset of *kafka.Writer the publisher drives.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher opens a writer per publish on top of a shared, pooled
// kafka.Transport, so concurrent submissions never share producer state.
type KafkaPublisher struct {
	newWriter func() MessageWriter
	transport *kafka.Transport
	timeout   time.Duration
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher builds a publisher for cfg.Topic on cfg.Brokers.
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	transport := &kafka.Transport{
		ClientID:    cfg.ClientID,
		DialTimeout: 5 * time.Second,
		IdleTimeout: 30 * time.Second,
	}
	addr := kafka.TCP(cfg.Brokers...)

	p := &KafkaPublisher{transport: transport, timeout: cfg.PublishTimeout}
	p.newWriter = func() MessageWriter {
		return &kafka.Writer{
			Addr:         addr,
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  1,
			BatchSize:    1,
			WriteTimeout: cfg.PublishTimeout,
			Transport:    transport,
		}
	}
	return p, nil
}

// NewPublisherWithWriter returns a publisher that obtains one writer per publish from newWriter.
func NewPublisherWithWriter(newWriter func() MessageWriter, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{newWriter: newWriter, timeout: timeout}
}

// Publish encodes event as JSON keyed by application ID, so every event of an
// application lands on the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event model.SubmissionEvent) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	w := p.newWriter()
	defer w.Close()

	if err := w.WriteMessages(ctx, msg); err != nil {
		return classify(err)
	}
	return nil
}

// Close drops idle broker connections held by the shared transport.
func (p *KafkaPublisher) Close() {
	if p.transport != nil {
		p.transport.CloseIdleConnections()
	}
}

func encode(event model.SubmissionEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode submission event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.ApplicationID),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "eventId", Value: []byte(event.EventID)},
			{Key: "eventType", Value: []byte(event.EventType)},
			{Key: "correlationId", Value: []byte(event.CorrelationID)},
		},
	}, nil
}

func classify(err error) error {
	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) && len(writeErrs) > 0 && writeErrs[0] != nil {
		err = writeErrs[0]
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, kafka.RequestTimedOut) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
}
