package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Player struct {
	Address string `json:"address"`
	Color   Color  `json:"color"`
}

func (p Player) Present() bool {
	return p.Address != ""
}

type Game struct {
	Id           string          `gorm:"primaryKey" json:"id"`
	Name         string          `json:"name"`
	Currency     Currency        `json:"currency"`
	Wager        decimal.Decimal `gorm:"type:numeric" json:"wager"`
	Network      Network         `json:"network"`
	Player1      Player          `gorm:"embedded;embeddedPrefix:player1_" json:"player1"`
	Player2      Player          `gorm:"embedded;embeddedPrefix:player2_" json:"player2"`
	OutcomeColor *Color          `json:"outcomeColor,omitempty"`
	Result       *GameResult     `json:"result,omitempty"`
	GameStatus   GameStatus      `gorm:"index" json:"status"`
	TimeCreated  time.Time       `json:"timeCreated"`
	TimeUpdated  time.Time       `json:"timeUpdated"`
}

func (Game) TableName() string {
	return "game"
}

// Status derives the lifecycle state from the recorded players and outcome,
// so a record that predates the status column still reads correctly.
func (g Game) Status() GameStatus {
	switch {
	case g.OutcomeColor != nil:
		return GameSettled
	case g.Player2.Present():
		return GameFull
	default:
		return GameOpen
	}
}
