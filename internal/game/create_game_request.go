package game

import (
	"strings"

	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/shopspring/decimal"
)

const maxGameNameLength = 64

type CreateGameRequest struct {
	Name     string          `json:"name"`
	Currency string          `json:"currency"`
	Wager    decimal.Decimal `json:"wager"`
	Address  string          `json:"address"`
	Color    string          `json:"color"`
	Network  string          `json:"network"`
}

type createGameParams struct {
	name     string
	currency model.Currency
	wager    decimal.Decimal
	player1  model.Player
	network  model.Network
}

func (r CreateGameRequest) validate() (createGameParams, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" || len(name) > maxGameNameLength {
		return createGameParams{}, reject.Validation("name must be between 1 and %d characters", maxGameNameLength)
	}

	currency, err := model.ParseCurrency(r.Currency)
	if err != nil {
		return createGameParams{}, reject.Validation("%s", err.Error())
	}
	player, err := parsePlayer(r.Address, r.Color)
	if err != nil {
		return createGameParams{}, err
	}
	network, err := model.ParseNetwork(r.Network)
	if err != nil {
		return createGameParams{}, reject.Validation("%s", err.Error())
	}
	if !r.Wager.IsPositive() {
		return createGameParams{}, reject.Validation("wager must be positive")
	}

	return createGameParams{
		name:     name,
		currency: currency,
		wager:    r.Wager,
		player1:  player,
		network:  network,
	}, nil
}

func parsePlayer(address string, color string) (model.Player, error) {
	if !blockchain.ValidAddress(strings.TrimSpace(address)) {
		return model.Player{}, reject.Validation("malformed address %q", address)
	}
	c, err := model.ParseColor(color)
	if err != nil {
		return model.Player{}, reject.Validation("%s", err.Error())
	}
	return model.Player{Address: blockchain.NormalizeAddress(address), Color: c}, nil
}
