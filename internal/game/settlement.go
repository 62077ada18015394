package game

import (
	"fmt"

	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/model"
	"github.com/shopspring/decimal"
)

type PayoutLeg struct {
	Recipient string          `json:"address"`
	Amount    decimal.Decimal `json:"amount"`
}

type PayoutPlan struct {
	Result model.GameResult `json:"result"`
	Legs   []PayoutLeg      `json:"legs"`
}

// DecideResult classifies a spin. Players on the same colour share its fate:
// both refunded when it comes up (PUSH), both lose to the house otherwise.
func DecideResult(p1, p2 model.Player, outcome model.Color) model.GameResult {
	if p1.Color == p2.Color {
		if p1.Color == outcome {
			return model.ResultPush
		}
		return model.ResultHouse
	}
	if p1.Color == outcome {
		return model.ResultPlayer1
	}
	return model.ResultPlayer2
}

// ResolvePayouts computes the treasury transfers for a settled game. feeRate is
// the share of every paid out amount kept by the house.
func ResolvePayouts(p1, p2 model.Player, outcome model.Color, wager, feeRate decimal.Decimal) PayoutPlan {
	share := decimal.NewFromInt(1).Sub(feeRate)
	result := DecideResult(p1, p2, outcome)

	plan := PayoutPlan{Result: result, Legs: []PayoutLeg{}}
	switch result {
	case model.ResultPush:
		refund := wager.Mul(share)
		plan.Legs = append(plan.Legs,
			PayoutLeg{Recipient: p1.Address, Amount: refund},
			PayoutLeg{Recipient: p2.Address, Amount: refund},
		)
	case model.ResultPlayer1:
		plan.Legs = append(plan.Legs, PayoutLeg{Recipient: p1.Address, Amount: pot(wager).Mul(share)})
	case model.ResultPlayer2:
		plan.Legs = append(plan.Legs, PayoutLeg{Recipient: p2.Address, Amount: pot(wager).Mul(share)})
	}
	return plan
}

func pot(wager decimal.Decimal) decimal.Decimal {
	return wager.Mul(decimal.NewFromInt(2))
}

// Winner is the address collecting the pot, or nil when nobody won outright.
func (p PayoutPlan) Winner() *string {
	if p.Result != model.ResultPlayer1 && p.Result != model.ResultPlayer2 {
		return nil
	}
	winner := p.Legs[0].Recipient
	return &winner
}

func settlementMessage(game *model.Game, plan PayoutPlan, outcome model.Color) string {
	switch plan.Result {
	case model.ResultPush:
		return fmt.Sprintf("It's a draw! Both players picked %s. Each will receive their wager back less the house fee.", outcome)
	case model.ResultHouse:
		return fmt.Sprintf("Both players lost the game. The winning color was %s. Better luck next time!", outcome)
	case model.ResultPlayer1:
		return fmt.Sprintf("Player 1 won the roulette game on %s. %s %s will be transferred to %s.",
			outcome, plan.Legs[0].Amount.String(), game.Currency, plan.Legs[0].Recipient)
	default:
		return fmt.Sprintf("Congratulations Player 2! You won the roulette game on %s. %s %s will be transferred to %s.",
			outcome, plan.Legs[0].Amount.String(), game.Currency, plan.Legs[0].Recipient)
	}
}
