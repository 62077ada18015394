package ws

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingListener struct {
	mu     sync.Mutex
	events []any
	fail   bool
}

func (l *recordingListener) WriteJSON(v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errors.New("broken pipe")
	}
	l.events = append(l.events, v)
	return nil
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func TestPublishReachesOnlyTopicListeners(t *testing.T) {
	hub := NewNotificationHub()
	first, second, other := &recordingListener{}, &recordingListener{}, &recordingListener{}

	hub.RegisterListener("game/1", first)
	hub.RegisterListener("game/1", second)
	hub.RegisterListener("game/2", other)

	hub.Publish("game/1", map[string]any{"type": "GAME_SETTLED"})

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
	assert.Equal(t, 0, other.count())
}

func TestUnregisterRemovesOnlyThatListener(t *testing.T) {
	hub := NewNotificationHub()
	first, second := &recordingListener{}, &recordingListener{}

	hub.RegisterListener("game/1", first)
	hub.RegisterListener("game/1", second)
	hub.UnregisterListener("game/1", first)

	assert.Equal(t, 1, hub.ListenerCount("game/1"))
	hub.Publish("game/1", "ping")
	assert.Equal(t, 0, first.count())
	assert.Equal(t, 1, second.count())

	hub.UnregisterListener("game/1", second)
	assert.Equal(t, 0, hub.ListenerCount("game/1"))

	hub.UnregisterListener("game/unknown", second)
	assert.Equal(t, 0, hub.ListenerCount("game/unknown"))
}

func TestPublishSkipsFailingListener(t *testing.T) {
	hub := NewNotificationHub()
	broken, healthy := &recordingListener{fail: true}, &recordingListener{}

	hub.RegisterListener("game/1", broken)
	hub.RegisterListener("game/1", healthy)
	hub.Publish("game/1", "ping")

	assert.Equal(t, 1, healthy.count())
}

func TestConcurrentRegistrationAndPublish(t *testing.T) {
	hub := NewNotificationHub()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l := &recordingListener{}
			hub.RegisterListener("game/1", l)
			hub.UnregisterListener("game/1", l)
		}()
		go func() {
			defer wg.Done()
			hub.Publish("game/1", "ping")
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.ListenerCount("game/1"))
}
