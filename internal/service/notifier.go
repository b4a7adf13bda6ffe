package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/event-service/internal/domain"
	"github.com/campushq/event-service/pkg/kafka"
)

// Notifier defines the interface for publishing lifecycle change notifications
type Notifier interface {
	// NotifyEventChange publishes an event lifecycle transition
	NotifyEventChange(ctx context.Context, changeType domain.ChangeType, event *domain.Event) error

	// NotifyRegistrationChange publishes a registration transition
	NotifyRegistrationChange(ctx context.Context, changeType domain.ChangeType, reg *domain.Registration) error

	// Close closes the notifier
	Close() error
}

// KafkaNotifier implements Notifier using Kafka
type KafkaNotifier struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
}

// NotifierConfig contains configuration for the notifier
type NotifierConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaNotifier creates a new Kafka notifier
func NewKafkaNotifier(ctx context.Context, cfg *NotifierConfig) (*KafkaNotifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("notifier config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "event-lifecycle"
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "event-service"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "event-service-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaNotifier{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
	}, nil
}

// NotifyEventChange publishes an event lifecycle transition
func (n *KafkaNotifier) NotifyEventChange(ctx context.Context, changeType domain.ChangeType, event *domain.Event) error {
	change := domain.NewEventChange(changeType, event, uuid.New().String())
	return n.publish(ctx, change)
}

// NotifyRegistrationChange publishes a registration transition
func (n *KafkaNotifier) NotifyRegistrationChange(ctx context.Context, changeType domain.ChangeType, reg *domain.Registration) error {
	change := domain.NewRegistrationChange(changeType, reg, uuid.New().String())
	return n.publish(ctx, change)
}

// Close closes the notifier
func (n *KafkaNotifier) Close() error {
	if n.producer != nil {
		n.producer.Close()
	}
	return nil
}

func (n *KafkaNotifier) publish(ctx context.Context, change *domain.ChangeEvent) error {
	value, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	headers := map[string]string{
		"change_type":  string(change.Type),
		"change_id":    change.ID,
		"source":       n.serviceName,
		"content_type": "application/json",
	}

	msg := &kafka.Message{
		Topic:     n.topic,
		Key:       []byte(change.Key()),
		Value:     value,
		Headers:   headers,
		Timestamp: time.Now(),
	}

	if err := n.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s change: %w", change.Type, err)
	}
	return nil
}

// NoOpNotifier is a no-op implementation of Notifier for testing
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new no-op notifier
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// NotifyEventChange is a no-op
func (n *NoOpNotifier) NotifyEventChange(ctx context.Context, changeType domain.ChangeType, event *domain.Event) error {
	return nil
}

// NotifyRegistrationChange is a no-op
func (n *NoOpNotifier) NotifyRegistrationChange(ctx context.Context, changeType domain.ChangeType, reg *domain.Registration) error {
	return nil
}

// Close is a no-op
func (n *NoOpNotifier) Close() error {
	return nil
}
