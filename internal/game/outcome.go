package game

import (
	cryptoRand "crypto/rand"
	"math/rand"
	"sync"
	"time"

	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/model"
	"github.com/rs/zerolog/log"
)

// OutcomeDrawer spins the wheel.
type OutcomeDrawer interface {
	Draw() model.Color
}

// cryptoDrawer reads one bit from the system entropy source and only falls
// back to math/rand when that source fails.
type cryptoDrawer struct {
	mu       sync.Mutex
	fallback *rand.Rand
}

func NewOutcomeDrawer() OutcomeDrawer {
	return &cryptoDrawer{
		fallback: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *cryptoDrawer) Draw() model.Color {
	var buf [1]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		log.Warn().Err(err).Msg("System entropy unavailable, drawing from math/rand")
		d.mu.Lock()
		defer d.mu.Unlock()
		return colorFromBit(byte(d.fallback.Intn(2)))
	}
	return colorFromBit(buf[0] & 1)
}

func colorFromBit(bit byte) model.Color {
	if bit == 0 {
		return model.Red
	}
	return model.Blue
}
