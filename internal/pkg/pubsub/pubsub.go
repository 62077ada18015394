package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// Publishable is anything that knows which topic it belongs on.
type Publishable interface {
	GetEventTopicName() string
}

type Client struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func NewClient(ctx context.Context, projectId string, opts ...option.ClientOption) (*Client, error) {
	if projectId == "" {
		return nil, fmt.Errorf("pub sub missing projectID to initialize")
	}

	client, err := pubsub.NewClient(ctx, projectId, opts...)
	if err != nil {
		log.Error().Err(err).Msg("Error initializing pub sub connection")
		return nil, err
	}
	log.Info().Str("projectId", projectId).Msg("Successful pubsub init")

	return &Client{
		client: client,
		topics: map[string]*pubsub.Topic{},
	}, nil
}

// Subscribe blocks receiving messages until ctx is done or the subscription fails.
func (c *Client) Subscribe(ctx context.Context, subscriptionHandler SubscriptionHandler) error {
	sub := c.client.Subscription(subscriptionHandler.SubscriptionId)
	err := sub.Receive(ctx, subscriptionHandler.Handler)
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Subscriber error for sub id %s", subscriptionHandler.SubscriptionId))
	}
	return err
}

// Publish sends message asynchronously; delivery failures are logged, not returned.
// Delivery does not depend on ctx staying alive.
func (c *Client) Publish(ctx context.Context, message Publishable) {
	ctx = context.WithoutCancel(ctx)
	t, err := c.getTopic(ctx, message.GetEventTopicName())
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Failed to publish message for %s", message.GetEventTopicName()))
		return
	}

	result := t.Publish(ctx, &pubsub.Message{Data: encodeMessage(message)})

	go func(res *pubsub.PublishResult) {
		_, err := res.Get(context.Background())
		if err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Failed to publish message for %s", message.GetEventTopicName()))
		}
	}(result)
}

func (c *Client) Close() {
	c.mu.Lock()
	for _, t := range c.topics {
		t.Stop()
	}
	c.topics = map[string]*pubsub.Topic{}
	c.mu.Unlock()

	if err := c.client.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing pub sub client")
	}
}

func (c *Client) getTopic(ctx context.Context, topicName string) (*pubsub.Topic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.topics[topicName]; ok {
		return t, nil
	}

	t := c.client.Topic(topicName)
	exists, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Info().Msg(fmt.Sprintf("Topic %s does not exist. Creating new", topicName))
		t, err = c.client.CreateTopic(ctx, topicName)
		if err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Cant create topic %s", topicName))
			return nil, err
		}
	}

	c.topics[topicName] = t
	return t, nil
}

func encodeMessage(message any) []byte {
	switch m := message.(type) {
	case string:
		return []byte(m)
	default:
		bytes, _ := json.Marshal(message)
		return bytes
	}
}
