package pubsub

import (
	"context"
	"errors"

	"cloud.google.com/go/pubsub"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/rs/zerolog/log"
)

type SubscriptionHandler struct {
	SubscriptionId string
	Handler        func(ctx context.Context, message *pubsub.Message)
}

// Acking adapts fn into a receive callback. The message is acked when fn succeeds
// or fails with a validation or conflict error, since redelivering those cannot
// change the result. Anything else is nacked for redelivery.
func Acking(fn func(ctx context.Context, data []byte) error) func(context.Context, *pubsub.Message) {
	return func(ctx context.Context, message *pubsub.Message) {
		log.Info().Str("messageId", message.ID).Msg("Received message payload " + string(message.Data))

		err := fn(ctx, message.Data)
		switch {
		case err == nil:
			message.Ack()
		case errors.Is(err, reject.ErrValidation), errors.Is(err, reject.ErrConflict), errors.Is(err, reject.ErrNotFound):
			log.Warn().Err(err).Str("messageId", message.ID).Msg("Dropping message that cannot be handled")
			message.Ack()
		default:
			log.Warn().Err(err).Str("messageId", message.ID).Msg("Error while handling message, will be redelivered")
			message.Nack()
		}
	}
}
