package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes checkout events keyed by buyer id. Writes go through a circuit
// breaker so a dead broker fails fast instead of stalling every checkout.
type KafkaPublisher struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w)
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	st := gobreaker.Settings{
		Name:        "checkout-events",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &KafkaPublisher{
		writer:  w,
		breaker: gobreaker.NewCircuitBreaker[struct{}](st),
		timeout: 5 * time.Second,
	}
}

func (p *KafkaPublisher) PublishCheckoutCompleted(ctx context.Context, evt CheckoutCompleted) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.BuyerID), // per-buyer ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: eventTypeHeader, Value: []byte(EventTypeCheckoutCompleted)},
		},
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return struct{}{}, p.writer.WriteMessages(writeCtx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", EventTypeCheckoutCompleted, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
