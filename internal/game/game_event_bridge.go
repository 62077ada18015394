package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/pubsub"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/utils"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/ws"
	"github.com/rs/zerolog/log"
)

const (
	gameEventsTopic      = "roulette.games.events"
	resolveRequestsSubId = "roulette.games.resolve-requests-sub"
)

type GameEventType string

const (
	GameCreated     GameEventType = "GAME_CREATED"
	GameJoined      GameEventType = "GAME_JOINED"
	GameSettled     GameEventType = "GAME_SETTLED"
	DepositOrphaned GameEventType = "DEPOSIT_ORPHANED"
)

type GameEvent struct {
	Id         string            `json:"id"`
	Type       GameEventType     `json:"type"`
	GameId     string            `json:"gameId"`
	Game       *model.Game       `json:"game,omitempty"`
	Settlement *SettlementResult `json:"settlement,omitempty"`
	Deposit    *model.Deposit    `json:"deposit,omitempty"`
	Time       time.Time         `json:"time"`
}

func (GameEvent) GetEventTopicName() string {
	return gameEventsTopic
}

func newGameEvent(eventType GameEventType, game *model.Game) GameEvent {
	return GameEvent{
		Id:     uuid.New().String(),
		Type:   eventType,
		GameId: game.Id,
		Game:   game,
		Time:   time.Now().UTC(),
	}
}

type ResolveRequest struct {
	GameId string `json:"gameId"`
}

// EventPublisher is the Pub/Sub side of the bridge.
type EventPublisher interface {
	Publish(ctx context.Context, message pubsub.Publishable)
}

// gameEventBridge fans game events out to Pub/Sub and to websocket listeners
// of the game. Either side may be absent.
type gameEventBridge struct {
	publisher       EventPublisher
	notificationHub *ws.WebSocketNotificationHub
}

func NewEventBridge(publisher EventPublisher, hub *ws.WebSocketNotificationHub) EventSink {
	return &gameEventBridge{
		publisher:       publisher,
		notificationHub: hub,
	}
}

func (b *gameEventBridge) Publish(ctx context.Context, event GameEvent) {
	if b.publisher != nil {
		b.publisher.Publish(ctx, event)
	}

	// Orphaned deposits are operator business, not something players watch.
	if b.notificationHub != nil && event.Type != DepositOrphaned {
		b.notificationHub.Publish(ws.GameTopic(event.GameId), event)
	}
}

// HandleResolveRequest settles the game named by a resolve request message.
func (s *GameService) HandleResolveRequest(ctx context.Context, data []byte) error {
	messagePayload, err := utils.JsonDecodeByteStream[ResolveRequest](data)
	if err != nil {
		return reject.Validation("cannot parse ResolveRequest message: %s", err)
	}
	if messagePayload.GameId == "" {
		return reject.Validation("resolve request without gameId")
	}

	settlement, err := s.ResolveGame(ctx, messagePayload.GameId)
	if err != nil {
		return err
	}

	log.Info().Str("gameId", settlement.GameId).Str("result", string(settlement.Result)).Msg("Resolved game from request")
	return nil
}

type discardEvents struct{}

func (discardEvents) Publish(context.Context, GameEvent) {}
