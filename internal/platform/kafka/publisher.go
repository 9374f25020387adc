// Package kafka publishes monitor alerts and task lifecycle events to Kafka
// topics as JSON.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"

	"github.com/star64ccs/CardStrategy-sub008/internal/config"
	"github.com/star64ccs/CardStrategy-sub008/internal/events"
	"github.com/star64ccs/CardStrategy-sub008/internal/monitor"
	"github.com/star64ccs/CardStrategy-sub008/internal/redact"
)

// DefaultWriteTimeout bounds each publish so a down cluster cannot stall
// alert handlers or the scheduler's event fan-out.
const DefaultWriteTimeout = 3 * time.Second

var ErrNoBrokers = errors.New("no kafka brokers configured")

// messageWriter is the part of *kgo.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

// Publisher writes alerts to the alert topic and task events to the event
// topic. It satisfies monitor.AlertHandler and events.EventHandler.
type Publisher struct {
	writer     messageWriter
	alertTopic string
	eventTopic string
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

var (
	_ monitor.AlertHandler = (*Publisher)(nil)
	_ events.EventHandler  = (*Publisher)(nil)
)

// NewPublisher creates a Publisher over a kafka-go writer for cfg.Brokers.
func NewPublisher(cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	brokers := splitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	w := &kgo.Writer{
		Addr:         kgo.TCP(brokers...),
		Balancer:     &kgo.LeastBytes{},
		RequiredAcks: kgo.RequireOne,
	}
	p := newPublisher(w, cfg, logger)
	p.logger.Info("kafka publisher configured",
		"brokers", brokers,
		"alert_topic", cfg.AlertTopic,
		"event_topic", cfg.EventTopic)
	return p, nil
}

func newPublisher(w messageWriter, cfg config.KafkaConfig, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer:     w,
		alertTopic: cfg.AlertTopic,
		eventTopic: cfg.EventTopic,
		timeout:    DefaultWriteTimeout,
		logger:     logger.With("component", "kafka_publisher"),
		now:        time.Now,
	}
}

// PublishesEvents reports whether an event topic is configured.
func (p *Publisher) PublishesEvents() bool {
	return p.eventTopic != ""
}

// HandleAlert publishes alert keyed by its id.
func (p *Publisher) HandleAlert(ctx context.Context, alert monitor.Alert) error {
	return p.publishJSON(ctx, p.alertTopic, alert.ID, alert)
}

// HandleEvent publishes event keyed by its subject, so all events for one
// task land on the same partition in order.
func (p *Publisher) HandleEvent(ctx context.Context, event *events.Event) error {
	if p.eventTopic == "" {
		return nil
	}
	key := event.Subject
	if key == "" {
		key = event.ID.String()
	}
	return p.publishJSON(ctx, p.eventTopic, key, event)
}

func (p *Publisher) publishJSON(ctx context.Context, topic, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode kafka message: %w", err)
	}

	wctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(wctx, kgo.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: b,
		Time:  p.now(),
	})
	if err != nil {
		p.logger.WarnContext(ctx, "failed to publish kafka message",
			"topic", topic,
			"key", key,
			"error", redact.Error(err))
		return fmt.Errorf("publish to %s: %s", topic, redact.Error(err))
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// splitBrokers accepts list entries that are themselves comma separated, as
// they arrive from a single environment variable.
func splitBrokers(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, b := range strings.Split(entry, ",") {
			if b = strings.TrimSpace(b); b != "" {
				out = append(out, b)
			}
		}
	}
	return out
}
