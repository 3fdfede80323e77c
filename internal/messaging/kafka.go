package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelshelf/internal/config"
	"github.com/temcen/reelshelf/internal/metrics"
	"github.com/temcen/reelshelf/pkg/models"
)

const defaultServedTopic = "recommendations-served"

// messageWriter is the part of *kafka.Writer the bus uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageBus publishes analytics events. Publishing is best effort: a missing or failing
// broker never affects the request that triggered the event.
type MessageBus struct {
	writer messageWriter
	topic  string
	logger *logrus.Logger
}

// NewMessageBus returns a disabled bus when no brokers are configured.
func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	topic := cfg.Kafka.Topics.RecommendationsServed
	if topic == "" {
		topic = defaultServedTopic
	}

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("No Kafka brokers configured, recommendation events disabled")
		return &MessageBus{topic: topic, logger: logger}, nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // keyed by user id, so one user's events stay ordered
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		BatchSize:    100,
		Completion: func(messages []kafka.Message, err error) {
			outcome := "success"
			if err != nil {
				outcome = "failure"
				logger.WithError(err).WithField("messages", len(messages)).Warn("Failed to deliver recommendation events")
			}
			metrics.EventsPublished.WithLabelValues(topic, outcome).Add(float64(len(messages)))
		},
	}

	return newMessageBus(writer, topic, logger), nil
}

func newMessageBus(writer messageWriter, topic string, logger *logrus.Logger) *MessageBus {
	return &MessageBus{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

func (mb *MessageBus) Enabled() bool {
	return mb.writer != nil
}

// PublishRecommendationsServed emits one event describing a served page.
func (mb *MessageBus) PublishRecommendationsServed(ctx context.Context, userID uuid.UUID, limit int, result *models.RecommendationResult) error {
	if !mb.Enabled() {
		return nil
	}

	keys := make([]string, 0, len(result.Results))
	for _, item := range result.Results {
		keys = append(keys, item.DedupKey())
	}

	event := models.RecommendationsServedEvent{
		EventID:      uuid.New(),
		UserID:       userID,
		Page:         result.Page,
		Limit:        limit,
		TotalResults: result.TotalResults,
		ItemKeys:     keys,
		Timestamp:    time.Now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(userID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "event_type", Value: []byte(mb.topic)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := mb.writer.WriteMessages(ctx, message); err != nil {
		metrics.EventsPublished.WithLabelValues(mb.topic, "failure").Inc()
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"user_id":  userID,
		"topic":    mb.topic,
		"items":    len(keys),
	}).Debug("Recommendation event queued")

	return nil
}

func (mb *MessageBus) Close() error {
	if mb.writer == nil {
		return nil
	}
	if err := mb.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	return nil
}
