package ws

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Listener is the part of a websocket connection the hub writes to.
type Listener interface {
	WriteJSON(v any) error
}

// GameTopic is the hub topic carrying events for one game.
func GameTopic(gameId string) string {
	return fmt.Sprintf("game/%s", gameId)
}

type WebSocketNotificationHub struct {
	registrationMutex sync.RWMutex
	listeners         map[string][]Listener
}

func NewNotificationHub() *WebSocketNotificationHub {
	return &WebSocketNotificationHub{
		listeners: make(map[string][]Listener),
	}
}

func (hub *WebSocketNotificationHub) RegisterListener(topic string, conn Listener) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	hub.listeners[topic] = append(hub.listeners[topic], conn)
}

func (hub *WebSocketNotificationHub) UnregisterListener(topic string, conn Listener) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	remaining := hub.listeners[topic][:0]
	for _, listener := range hub.listeners[topic] {
		if listener != conn {
			remaining = append(remaining, listener)
		}
	}

	if len(remaining) == 0 {
		delete(hub.listeners, topic)
		return
	}
	hub.listeners[topic] = remaining
}

func (hub *WebSocketNotificationHub) ListenerCount(topic string) int {
	hub.registrationMutex.RLock()
	defer hub.registrationMutex.RUnlock()

	return len(hub.listeners[topic])
}

// Publish writes event to every listener of targetTopic. A listener that fails
// the write is logged and skipped; its reader loop unregisters it.
func (hub *WebSocketNotificationHub) Publish(targetTopic string, event any) {
	hub.registrationMutex.RLock()
	listeners := append([]Listener(nil), hub.listeners[targetTopic]...)
	hub.registrationMutex.RUnlock()

	for _, listener := range listeners {
		if err := listener.WriteJSON(event); err != nil {
			log.Warn().Err(err).Str("topic", targetTopic).Msg("Error writing ws message")
		}
	}
}
