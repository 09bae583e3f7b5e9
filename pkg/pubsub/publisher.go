package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/fashionshop/storefront-notifier/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub topic id is required")
)

// Publisher publishes push requests to the mobile push-gateway topic.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicID   string
}

// NewPublisher creates a Pub/Sub v2 client bound to a single topic.
func NewPublisher(ctx context.Context, projectID, topicID string, logg *logger.Logger) (*Publisher, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(topicID) == "" {
		return nil, errTopicRequired
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "pubsub publisher initialized")
	}

	return &Publisher{
		client:    client,
		publisher: client.Publisher(topicID),
		topicID:   topicID,
	}, nil
}

// Publish sends one message and waits for the server ack.
func (p *Publisher) Publish(ctx context.Context, data []byte, attrs map[string]string) error {
	if p == nil || p.publisher == nil {
		return errors.New("pubsub publisher not initialized")
	}
	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topicID, err)
	}
	return nil
}

// Close flushes pending messages and releases the client.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.publisher != nil {
		p.publisher.Stop()
	}
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
