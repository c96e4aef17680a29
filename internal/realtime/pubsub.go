package realtime

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// PubSubPublisher exports events to a Google Cloud Pub/Sub topic for
// downstream consumers.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher connects to the topic, creating it when missing.
func NewPubSubPublisher(ctx context.Context, projectID, topicName, credentialsFile string) (*PubSubPublisher, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	topic := client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("check topic %s: %w", topicName, err)
	}
	if !exists {
		if topic, err = client.CreateTopic(ctx, topicName); err != nil {
			client.Close()
			return nil, fmt.Errorf("create topic %s: %w", topicName, err)
		}
		log.Printf("[PubSub] Created topic: %s", topicName)
	}

	return &PubSubPublisher{client: client, topic: topic}, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, event Event) error {
	data, err := sonic.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{
			"project_id": event.ProjectID,
			"entity":     string(event.Entity),
			"op":         string(event.Op),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}
	return nil
}

// Close flushes pending messages and releases the client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
