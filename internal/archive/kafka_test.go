package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKafkaPublisherValidation(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaPublisherConfig{Topic: "archive"})
	require.Error(t, err, "brokers are required")

	_, err = NewKafkaPublisher(KafkaPublisherConfig{Brokers: []string{"localhost:9092"}})
	require.Error(t, err, "topic is required")
}

func TestKafkaPublisherRejectsAfterClose(t *testing.T) {
	p, err := NewKafkaPublisher(KafkaPublisherConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "archive",
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "closing twice is a no-op")

	err = p.Publish(context.Background(), Event{
		Kind:         EventResourceRetired,
		PhysicalName: "stg_orders",
		Timestamp:    time.Now(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPublisherClosed))
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.Publish(context.Background(), Event{Kind: EventResourceRetired}))
	assert.NoError(t, p.Close())
}
