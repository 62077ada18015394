package wallet

import (
	"context"

	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/pubsub"
)

const accountCreatedSubId = "blockchain.flow.events.account-created-sub"

// RegisterSubscriptions keeps the wallet table in step with accounts created
// by the key management service.
func RegisterSubscriptions(ctx context.Context, client *pubsub.Client, service *Service) {
	go client.Subscribe(ctx, pubsub.SubscriptionHandler{
		SubscriptionId: accountCreatedSubId,
		Handler:        pubsub.Acking(service.HandleAccountCreated),
	})
}
