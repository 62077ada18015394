package pubsub

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type testEvent struct {
	Type   string `json:"type"`
	GameId string `json:"gameId"`
}

func (testEvent) GetEventTopicName() string {
	return "roulette.games.events"
}

func newTestClient(t *testing.T) (*Client, *pstest.Server) {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	client, err := NewClient(context.Background(), "roulette-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client, srv
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	assert.Error(t, err)
}

func TestPublishCreatesTopicAndDelivers(t *testing.T) {
	client, srv := newTestClient(t)

	client.Publish(context.Background(), testEvent{Type: "GAME_SETTLED", GameId: "g-1"})

	require.Eventually(t, func() bool {
		return len(srv.Messages()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	msg := srv.Messages()[0]
	assert.JSONEq(t, `{"type":"GAME_SETTLED","gameId":"g-1"}`, string(msg.Data))
}

func TestSubscribeDispatchesToHandler(t *testing.T) {
	client, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topic, err := client.client.CreateTopic(ctx, "roulette.games.resolve-requests")
	require.NoError(t, err)
	defer topic.Stop()
	_, err = client.client.CreateSubscription(ctx, "roulette.games.resolve-requests-sub", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	received := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- client.Subscribe(ctx, SubscriptionHandler{
			SubscriptionId: "roulette.games.resolve-requests-sub",
			Handler: Acking(func(_ context.Context, data []byte) error {
				received <- string(data)
				return nil
			}),
		})
	}()

	_, err = topic.Publish(ctx, &pubsub.Message{Data: []byte(`{"gameId":"g-2"}`)}).Get(ctx)
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.Equal(t, `{"gameId":"g-2"}`, data)
	case <-time.After(5 * time.Second):
		t.Fatal("message was not delivered")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestAckingAcksFinalErrors(t *testing.T) {
	client, srv := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topic, err := client.client.CreateTopic(ctx, "poison")
	require.NoError(t, err)
	defer topic.Stop()
	_, err = client.client.CreateSubscription(ctx, "poison-sub", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	calls := make(chan struct{}, 10)
	go func() {
		_ = client.Subscribe(ctx, SubscriptionHandler{
			SubscriptionId: "poison-sub",
			Handler: Acking(func(_ context.Context, _ []byte) error {
				calls <- struct{}{}
				return reject.Validation("malformed")
			}),
		})
	}()

	id, err := topic.Publish(ctx, &pubsub.Message{Data: []byte(`not json`)}).Get(ctx)
	require.NoError(t, err)

	<-calls
	require.Eventually(t, func() bool {
		msg := srv.Message(id)
		return msg != nil && msg.Acks == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestEncodeMessage(t *testing.T) {
	assert.Equal(t, []byte("raw"), encodeMessage("raw"))
	assert.JSONEq(t, `{"type":"X","gameId":"1"}`, string(encodeMessage(testEvent{Type: "X", GameId: "1"})))
}
