package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DepositStatus string

const (
	DepositConfirmed DepositStatus = "CONFIRMED"
	// DepositOrphaned marks a confirmed debit that no game state accounts for.
	// These rows are the input for manual reconciliation.
	DepositOrphaned DepositStatus = "ORPHANED"
)

type Deposit struct {
	Id            string          `gorm:"primaryKey" json:"id"`
	GameId        string          `gorm:"index" json:"gameId"`
	Address       string          `json:"address"`
	Currency      Currency        `json:"currency"`
	Network       Network         `json:"network"`
	Amount        decimal.Decimal `gorm:"type:numeric" json:"amount"`
	TxId          string          `json:"txId"`
	DepositStatus DepositStatus   `json:"status"`
	TimeCreated   time.Time       `json:"timeCreated"`
}

func (Deposit) TableName() string {
	return "deposit"
}
