// Package events mirrors persisted security events onto a Watermill stream so
// operators can alert on abuse without polling the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
)

// DefaultTopic is used when NewWatermillPublisher is given an empty topic.
const DefaultTopic = "claimkeeper.security"

// WatermillPublisher publishes security events to a Watermill topic.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher wraps publisher.
func NewWatermillPublisher(publisher message.Publisher, topic string) *WatermillPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{publisher: publisher, topic: topic}
}

// PublishSecurityEvent publishes event as JSON. Event details are embedded
// as-is.
func (p *WatermillPublisher) PublishSecurityEvent(ctx context.Context, event *models.SecurityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.EventType))
	msg.Metadata.Set("severity", string(event.Severity))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the underlying publisher.
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
