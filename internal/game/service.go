package game

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type GameStore interface {
	Create(ctx context.Context, game *model.Game) error
	GetById(ctx context.Context, id string) (*model.Game, error)
	CompleteJoin(ctx context.Context, id string, player2 model.Player) (*model.Game, error)
	CompleteSettlement(ctx context.Context, id string, outcome model.Color, result model.GameResult) (*model.Game, error)
	RecordDeposit(ctx context.Context, deposit *model.Deposit) error
	RecordPayout(ctx context.Context, payout *model.Payout) error
	ListPayouts(ctx context.Context, gameId string) ([]model.Payout, error)
}

type TransferClient interface {
	Transfer(ctx context.Context, from blockchain.Authorizer, to string, currency model.Currency, units uint64, network model.Network) (*blockchain.TxReceipt, error)
}

type CurrencyRegistry interface {
	Decimals(network model.Network, currency model.Currency) (int, error)
	Treasury(network model.Network) (blockchain.Authorizer, error)
}

type WalletResolver interface {
	FindAuthorizer(ctx context.Context, address string) (blockchain.Authorizer, error)
}

type EventSink interface {
	Publish(ctx context.Context, event GameEvent)
}

type Options struct {
	// FeeRate is the house share of every paid out amount, in [0, 1).
	FeeRate         decimal.Decimal
	TransferTimeout time.Duration
}

var DefaultOptions = Options{
	FeeRate:         decimal.RequireFromString("0.05"),
	TransferTimeout: 90 * time.Second,
}

type PayoutLegResult struct {
	Address       string             `json:"address"`
	Amount        decimal.Decimal    `json:"amount"`
	Status        model.PayoutStatus `json:"status"`
	TxId          string             `json:"txId,omitempty"`
	FailureReason string             `json:"failureReason,omitempty"`
}

type SettlementResult struct {
	GameId        string            `json:"gameId"`
	WinnerAddress *string           `json:"winnerAddress"`
	OutcomeColor  model.Color       `json:"outcomeColor"`
	Result        model.GameResult  `json:"result"`
	PayoutLegs    []PayoutLegResult `json:"payoutLegs"`
	Message       string            `json:"message"`
}

type GameView struct {
	model.Game
	Payouts []model.Payout `json:"payouts"`
}

// GameService drives games through OPEN -> FULL -> SETTLED. It keeps no state
// between calls: every transition is a guarded write in the store, and ledger
// transfers are never made while a store transaction is open.
type GameService struct {
	store     GameStore
	transfers TransferClient
	registry  CurrencyRegistry
	wallets   WalletResolver
	drawer    OutcomeDrawer
	events    EventSink
	opts      Options
}

func NewGameService(
	store GameStore,
	transfers TransferClient,
	registry CurrencyRegistry,
	wallets WalletResolver,
	drawer OutcomeDrawer,
	events EventSink,
	opts Options,
) (*GameService, error) {
	if opts.FeeRate.IsNegative() || opts.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, reject.Config("house fee rate %s is outside [0, 1)", opts.FeeRate.String())
	}
	if opts.TransferTimeout <= 0 {
		opts.TransferTimeout = DefaultOptions.TransferTimeout
	}
	if drawer == nil {
		drawer = NewOutcomeDrawer()
	}
	if events == nil {
		events = discardEvents{}
	}

	return &GameService{
		store:     store,
		transfers: transfers,
		registry:  registry,
		wallets:   wallets,
		drawer:    drawer,
		events:    events,
		opts:      opts,
	}, nil
}

// CreateGame debits player 1's wager into the treasury and opens the game.
// No game record exists unless the debit was confirmed.
func (s *GameService) CreateGame(ctx context.Context, req CreateGameRequest) (*model.Game, error) {
	params, err := req.validate()
	if err != nil {
		return nil, err
	}

	deposit, err := s.prepareDeposit(ctx, params.player1.Address, params.wager, params.currency, params.network)
	if err != nil {
		return nil, err
	}

	game := &model.Game{
		Id:       uuid.New().String(),
		Name:     params.name,
		Currency: params.currency,
		Wager:    params.wager,
		Network:  params.network,
		Player1:  params.player1,
	}

	receipt, err := s.collect(ctx, deposit)
	if err != nil {
		return nil, err
	}
	// the wager has moved; the caller going away must not strand it
	ctx = context.WithoutCancel(ctx)

	if err := s.store.Create(ctx, game); err != nil {
		s.orphanDeposit(ctx, game.Id, deposit, receipt, err)
		return nil, err
	}
	s.confirmDeposit(ctx, game.Id, deposit, receipt)

	log.Info().Str("gameId", game.Id).Str("network", string(game.Network)).Msg("Game created")
	s.events.Publish(ctx, newGameEvent(GameCreated, game))
	return game, nil
}

// JoinGame debits player 2's wager, fills the game and settles it in the same call.
func (s *GameService) JoinGame(ctx context.Context, id string, req JoinGameRequest) (*SettlementResult, error) {
	params, err := req.validate()
	if err != nil {
		return nil, err
	}

	game, err := s.store.GetById(ctx, id)
	if err != nil {
		return nil, err
	}
	if status := game.Status(); status != model.GameOpen {
		return nil, reject.Conflict("game %s is %s and cannot be joined", id, status)
	}
	if err := params.matches(game); err != nil {
		return nil, err
	}

	deposit, err := s.prepareDeposit(ctx, params.player2.Address, game.Wager, game.Currency, game.Network)
	if err != nil {
		return nil, err
	}
	receipt, err := s.collect(ctx, deposit)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	joined, err := s.store.CompleteJoin(ctx, id, params.player2)
	if err != nil {
		s.orphanDeposit(ctx, id, deposit, receipt, err)
		return nil, err
	}
	s.confirmDeposit(ctx, id, deposit, receipt)

	log.Info().Str("gameId", id).Msg("Game joined")
	s.events.Publish(ctx, newGameEvent(GameJoined, joined))

	return s.settle(ctx, joined)
}

// ResolveGame settles a FULL game. It exists for games left FULL when the
// settlement following a join did not run; settling twice is a Conflict.
func (s *GameService) ResolveGame(ctx context.Context, id string) (*SettlementResult, error) {
	game, err := s.store.GetById(ctx, id)
	if err != nil {
		return nil, err
	}
	if status := game.Status(); status != model.GameFull {
		return nil, reject.Conflict("game %s is %s and cannot be resolved", id, status)
	}
	return s.settle(ctx, game)
}

func (s *GameService) GetGame(ctx context.Context, id string) (*GameView, error) {
	game, err := s.store.GetById(ctx, id)
	if err != nil {
		return nil, err
	}
	payouts, err := s.store.ListPayouts(ctx, id)
	if err != nil {
		return nil, err
	}

	game.GameStatus = game.Status()
	return &GameView{Game: *game, Payouts: payouts}, nil
}

// settle runs to completion once started: the outcome write and every payout
// leg ignore cancellation of ctx and are bounded by their own timeouts.
func (s *GameService) settle(ctx context.Context, game *model.Game) (*SettlementResult, error) {
	ctx = context.WithoutCancel(ctx)

	// Configuration is checked while the game is still FULL so that a
	// misconfigured network leaves it resolvable later.
	treasury, err := s.registry.Treasury(game.Network)
	if err != nil {
		return nil, err
	}
	decimals, err := s.registry.Decimals(game.Network, game.Currency)
	if err != nil {
		return nil, err
	}

	outcome := s.drawer.Draw()
	result := DecideResult(game.Player1, game.Player2, outcome)

	settled, err := s.store.CompleteSettlement(ctx, game.Id, outcome, result)
	if err != nil {
		return nil, err
	}
	log.Info().Str("gameId", game.Id).Str("outcome", string(outcome)).Str("result", string(result)).Msg("Game settled")

	plan := ResolvePayouts(settled.Player1, settled.Player2, outcome, settled.Wager, s.opts.FeeRate)

	legs := make([]PayoutLegResult, 0, len(plan.Legs))
	for _, leg := range plan.Legs {
		legs = append(legs, s.pay(ctx, settled, treasury, decimals, leg))
	}

	settlement := &SettlementResult{
		GameId:        settled.Id,
		WinnerAddress: plan.Winner(),
		OutcomeColor:  outcome,
		Result:        plan.Result,
		PayoutLegs:    legs,
		Message:       settlementMessage(settled, plan, outcome),
	}

	event := newGameEvent(GameSettled, settled)
	event.Settlement = settlement
	s.events.Publish(ctx, event)

	return settlement, nil
}

// pay executes one leg. Its outcome is recorded and reported, never retried,
// and a failed leg does not affect the others.
func (s *GameService) pay(ctx context.Context, game *model.Game, treasury blockchain.Authorizer, decimals int, leg PayoutLeg) PayoutLegResult {
	legResult := PayoutLegResult{Address: leg.Recipient, Amount: leg.Amount}

	receipt, err := s.transferLeg(ctx, game, treasury, decimals, leg)
	if err != nil {
		legResult.Status = model.PayoutFailed
		legResult.FailureReason = failureReason(err)
		log.Error().Err(err).
			Str("gameId", game.Id).
			Str("recipient", leg.Recipient).
			Str("amount", leg.Amount.String()).
			Msg("Payout leg failed")
	} else {
		legResult.Status = model.PayoutPaid
		legResult.TxId = receipt.TxId
	}

	payout := &model.Payout{
		Id:            uuid.New().String(),
		GameId:        game.Id,
		Address:       leg.Recipient,
		Currency:      game.Currency,
		Network:       game.Network,
		Amount:        leg.Amount,
		PayoutStatus:  legResult.Status,
		TxId:          legResult.TxId,
		FailureReason: legResult.FailureReason,
	}
	if err := s.store.RecordPayout(ctx, payout); err != nil {
		log.Error().Err(err).Str("gameId", game.Id).Str("payoutId", payout.Id).Str("status", string(payout.PayoutStatus)).
			Msg("Cannot record payout")
	}

	return legResult
}

func (s *GameService) transferLeg(ctx context.Context, game *model.Game, treasury blockchain.Authorizer, decimals int, leg PayoutLeg) (*blockchain.TxReceipt, error) {
	units, err := blockchain.ScaleToUnits(leg.Amount, decimals)
	if err != nil {
		return nil, err
	}

	transferCtx, cancel := context.WithTimeout(ctx, s.opts.TransferTimeout)
	defer cancel()

	receipt, err := s.transfers.Transfer(transferCtx, treasury, leg.Recipient, game.Currency, units, game.Network)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("gameId", game.Id).
		Str("network", string(game.Network)).
		Str("currency", string(game.Currency)).
		Uint64("units", units).
		Str("txId", receipt.TxId).
		Msg("Payout leg paid")
	return receipt, nil
}

type pendingDeposit struct {
	from     blockchain.Authorizer
	to       string
	amount   decimal.Decimal
	units    uint64
	currency model.Currency
	network  model.Network
}

// prepareDeposit resolves everything a wager debit needs, so configuration and
// wallet problems surface before any funds move.
func (s *GameService) prepareDeposit(ctx context.Context, address string, wager decimal.Decimal, currency model.Currency, network model.Network) (*pendingDeposit, error) {
	decimals, err := s.registry.Decimals(network, currency)
	if err != nil {
		return nil, err
	}
	units, err := blockchain.ScaleToUnits(wager, decimals)
	if err != nil {
		return nil, err
	}
	if units == 0 {
		return nil, reject.Validation("wager %s is below the smallest unit of %s", wager.String(), currency)
	}

	treasury, err := s.registry.Treasury(network)
	if err != nil {
		return nil, err
	}
	from, err := s.wallets.FindAuthorizer(ctx, address)
	if err != nil {
		return nil, err
	}

	return &pendingDeposit{
		from:     from,
		to:       treasury.ResourceOwnerAddress,
		amount:   wager,
		units:    units,
		currency: currency,
		network:  network,
	}, nil
}

func (s *GameService) collect(ctx context.Context, deposit *pendingDeposit) (*blockchain.TxReceipt, error) {
	transferCtx, cancel := context.WithTimeout(ctx, s.opts.TransferTimeout)
	defer cancel()

	receipt, err := s.transfers.Transfer(transferCtx, deposit.from, deposit.to, deposit.currency, deposit.units, deposit.network)
	if err != nil {
		log.Warn().Err(err).
			Str("address", deposit.from.ResourceOwnerAddress).
			Str("network", string(deposit.network)).
			Msg("Wager debit failed")
		return nil, err
	}

	log.Info().
		Str("address", deposit.from.ResourceOwnerAddress).
		Str("network", string(deposit.network)).
		Str("currency", string(deposit.currency)).
		Uint64("units", deposit.units).
		Str("txId", receipt.TxId).
		Msg("Wager debited to treasury")
	return receipt, nil
}

func (s *GameService) confirmDeposit(ctx context.Context, gameId string, deposit *pendingDeposit, receipt *blockchain.TxReceipt) {
	record := depositRecord(gameId, deposit, receipt, model.DepositConfirmed)
	if err := s.store.RecordDeposit(ctx, record); err != nil {
		log.Error().Err(err).Str("gameId", gameId).Str("txId", receipt.TxId).Msg("Cannot record confirmed deposit")
	}
}

// orphanDeposit records a confirmed debit whose game transition failed. The
// funds stay in the treasury; the record and event feed manual reconciliation.
func (s *GameService) orphanDeposit(ctx context.Context, gameId string, deposit *pendingDeposit, receipt *blockchain.TxReceipt, cause error) {
	record := depositRecord(gameId, deposit, receipt, model.DepositOrphaned)

	log.Error().Err(cause).
		Str("gameId", gameId).
		Str("address", record.Address).
		Str("txId", receipt.TxId).
		Msg("Wager debited but game state was not updated")

	if err := s.store.RecordDeposit(ctx, record); err != nil {
		log.Error().Err(err).Str("gameId", gameId).Str("txId", receipt.TxId).Msg("Cannot record orphaned deposit")
	}

	event := GameEvent{
		Id:      uuid.New().String(),
		Type:    DepositOrphaned,
		GameId:  gameId,
		Deposit: record,
		Time:    time.Now().UTC(),
	}
	s.events.Publish(ctx, event)
}

func depositRecord(gameId string, deposit *pendingDeposit, receipt *blockchain.TxReceipt, status model.DepositStatus) *model.Deposit {
	return &model.Deposit{
		Id:            uuid.New().String(),
		GameId:        gameId,
		Address:       deposit.from.ResourceOwnerAddress,
		Currency:      deposit.currency,
		Network:       deposit.network,
		Amount:        deposit.amount,
		TxId:          receipt.TxId,
		DepositStatus: status,
	}
}

func failureReason(err error) string {
	if reason := reject.ReasonOf(err); reason != "" {
		return reason
	}
	if kind := reject.KindOf(err); kind != "" {
		return string(kind)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return reject.ReasonTimeout
	}
	return err.Error()
}
