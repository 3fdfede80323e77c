package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/reelshelf/internal/config"
	"github.com/temcen/reelshelf/pkg/models"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func servedResult() *models.RecommendationResult {
	return &models.RecommendationResult{
		Results: []models.CatalogItem{
			{ID: 999, MediaType: models.MediaTypeMovie},
			{ID: 1396, MediaType: models.MediaTypeTV},
		},
		Page:         2,
		TotalPages:   3,
		TotalResults: 45,
	}
}

func TestNewMessageBus_DisabledWithoutBrokers(t *testing.T) {
	bus, err := NewMessageBus(&config.Config{}, quietLogger())
	require.NoError(t, err)

	assert.False(t, bus.Enabled())
	assert.NoError(t, bus.PublishRecommendationsServed(context.Background(), uuid.New(), 20, servedResult()))
	assert.NoError(t, bus.Close())
}

func TestNewMessageBus_EnabledWithBrokers(t *testing.T) {
	cfg := &config.Config{}
	cfg.Kafka.Brokers = []string{"localhost:9092"}

	bus, err := NewMessageBus(cfg, quietLogger())
	require.NoError(t, err)
	defer bus.Close()

	assert.True(t, bus.Enabled())
	assert.Equal(t, defaultServedTopic, bus.topic)
}

func TestPublishRecommendationsServed(t *testing.T) {
	writer := &recordingWriter{}
	bus := newMessageBus(writer, "recommendations-served", quietLogger())
	userID := uuid.New()

	err := bus.PublishRecommendationsServed(context.Background(), userID, 20, servedResult())
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, userID.String(), string(msg.Key))

	headers := make(map[string]string)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "recommendations-served", headers["event_type"])
	assert.NotEmpty(t, headers["event_id"])

	var event models.RecommendationsServedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, userID, event.UserID)
	assert.Equal(t, 2, event.Page)
	assert.Equal(t, 20, event.Limit)
	assert.Equal(t, 45, event.TotalResults)
	assert.Equal(t, []string{"999", "1396tv"}, event.ItemKeys)
	assert.Equal(t, headers["event_id"], event.EventID.String())
}

func TestPublishRecommendationsServed_WriterFailure(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker unavailable")}
	bus := newMessageBus(writer, "recommendations-served", quietLogger())

	err := bus.PublishRecommendationsServed(context.Background(), uuid.New(), 20, servedResult())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write message to Kafka")
}

func TestMessageBus_Close(t *testing.T) {
	writer := &recordingWriter{}
	bus := newMessageBus(writer, "recommendations-served", quietLogger())

	require.NoError(t, bus.Close())
	assert.True(t, writer.closed)
}
