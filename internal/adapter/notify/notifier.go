// Package notify publishes operational alerts to a Kafka topic so that
// downstream consumers (pagers, chat bridges) learn about pipeline failures
// and stale source data.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Alert is the wire shape of one published notification.
type Alert struct {
	Subject string    `json:"subject"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// Notifier produces alert messages to a Kafka topic.
// It implements pipeline.Notifier.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the alert topic.
func NewNotifier(brokers []string, topic string, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// Publish serializes and sends one alert. The subject doubles as the message
// key so that alerts for the same condition land on one partition in order.
func (n *Notifier) Publish(ctx context.Context, subject, message string) error {
	msg, err := serializeAlert(Alert{Subject: subject, Message: message, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert %q: %w", subject, err)
	}
	n.logger.Info("alert published", "subject", subject)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeAlert marshals an Alert into a Kafka message.
func serializeAlert(alert Alert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.Subject),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "sent_at", Value: []byte(alert.SentAt.Format(time.RFC3339))},
		},
	}, nil
}
