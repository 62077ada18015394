package game

import (
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/shopspring/decimal"
)

type JoinGameRequest struct {
	Address string          `json:"address"`
	Color   string          `json:"color"`
	Wager   decimal.Decimal `json:"wager"`
	Network string          `json:"network"`
}

type joinGameParams struct {
	player2 model.Player
	wager   decimal.Decimal
	network model.Network
}

func (r JoinGameRequest) validate() (joinGameParams, error) {
	player, err := parsePlayer(r.Address, r.Color)
	if err != nil {
		return joinGameParams{}, err
	}
	network, err := model.ParseNetwork(r.Network)
	if err != nil {
		return joinGameParams{}, reject.Validation("%s", err.Error())
	}
	if !r.Wager.IsPositive() {
		return joinGameParams{}, reject.Validation("wager must be positive")
	}
	return joinGameParams{player2: player, wager: r.Wager, network: network}, nil
}

// matches checks the join against the game being joined.
func (p joinGameParams) matches(game *model.Game) error {
	if p.network != game.Network {
		return reject.Validation("game %s is played on %s, not %s", game.Id, game.Network, p.network)
	}
	if !p.wager.Equal(game.Wager) {
		return reject.Validation("wager %s does not match the game wager %s", p.wager.String(), game.Wager.String())
	}
	if p.player2.Address == game.Player1.Address {
		return reject.Validation("player 1 cannot join their own game")
	}
	return nil
}
