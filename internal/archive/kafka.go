// Package archive publishes lifecycle events for retired staging resources
// and applied optimizations so downstream consumers can archive them.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// ErrPublisherClosed is returned when publishing to a closed publisher.
var ErrPublisherClosed = errors.New("archive publisher is closed")

// EventKind identifies the archival event type.
type EventKind string

const (
	// EventResourceRetired is published when a staging table is dropped.
	EventResourceRetired EventKind = "RESOURCE_RETIRED"

	// EventOptimizationApplied is published when an optimization is applied.
	EventOptimizationApplied EventKind = "OPTIMIZATION_APPLIED"
)

// Event is the archival record published for a lifecycle transition.
type Event struct {
	Kind         EventKind               `json:"kind"`
	PhysicalName string                  `json:"physical_name"`
	DefinitionID string                  `json:"definition_id"`
	Reason       string                  `json:"reason,omitempty"`
	Sample       *core.PerformanceSample `json:"sample,omitempty"`
	Timestamp    time.Time               `json:"timestamp"`
}

// Publisher is the archival event contract. Publishing failures are
// tolerated sub-step failures: callers log and continue.
type Publisher interface {
	// Publish emits an archival event.
	Publish(ctx context.Context, event Event) error

	// Close flushes and releases the underlying transport.
	Close() error
}

// KafkaPublisher publishes archival events to a Kafka topic.
type KafkaPublisher struct {
	mu     sync.RWMutex
	writer *kafka.Writer
	topic  string
	closed bool
}

// KafkaPublisherConfig holds configuration for the Kafka publisher.
type KafkaPublisherConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequiredAcks int // 0, 1, or -1 (all)
}

// NewKafkaPublisher creates a Kafka-backed archival publisher.
func NewKafkaPublisher(config KafkaPublisherConfig) (*KafkaPublisher, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("Kafka topic is required")
	}

	log.Printf("[KAFKA] Initializing archive publisher - Brokers: %v, Topic: %s", config.Brokers, config.Topic)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    config.BatchSize,
		BatchTimeout: config.BatchTimeout,
		WriteTimeout: config.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		MaxAttempts:  3,
		Async:        false, // Synchronous writes so failures surface to the caller
	}

	return &KafkaPublisher{
		writer: writer,
		topic:  config.Topic,
	}, nil
}

// Publish serializes the event and writes it to the topic, keyed by
// physical name so all events for one resource land on one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal archive event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.PhysicalName),
		Value: payload,
		Time:  event.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish archive event for %s: %w", event.PhysicalName, err)
	}

	log.Printf("[KAFKA] Published %s event for %s", event.Kind, event.PhysicalName)
	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// NopPublisher discards all events. Used when archival is disabled.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// Close is a no-op.
func (NopPublisher) Close() error { return nil }
