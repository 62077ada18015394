package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutPaid   PayoutStatus = "PAID"
	PayoutFailed PayoutStatus = "FAILED"
)

type Payout struct {
	Id            string          `gorm:"primaryKey" json:"id"`
	GameId        string          `gorm:"index" json:"gameId"`
	Address       string          `json:"address"`
	Currency      Currency        `json:"currency"`
	Network       Network         `json:"network"`
	Amount        decimal.Decimal `gorm:"type:numeric" json:"amount"`
	PayoutStatus  PayoutStatus    `json:"status"`
	TxId          string          `json:"txId,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	TimeCreated   time.Time       `json:"timeCreated"`
}

func (Payout) TableName() string {
	return "payout"
}
