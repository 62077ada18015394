package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *GameStore {
	t.Helper()

	gs, err := Open(sqlite.Open(filepath.Join(t.TempDir(), "roulette.db")))
	require.NoError(t, err)

	sqlDb, err := gs.DB().DB()
	require.NoError(t, err)
	sqlDb.SetMaxOpenConns(1)

	require.NoError(t, gs.Migrate())
	t.Cleanup(gs.Close)
	return gs
}

func newOpenGame(t *testing.T, gs *GameStore) *model.Game {
	t.Helper()

	game := &model.Game{
		Id:       uuid.New().String(),
		Name:     "friday spin",
		Currency: model.Flow,
		Wager:    decimal.RequireFromString("10.5"),
		Network:  model.Testnet,
		Player1:  model.Player{Address: "0x179b6b1cb6755e31", Color: model.Red},
	}
	require.NoError(t, gs.Create(context.Background(), game))
	return game
}

func TestCreateAndGetById(t *testing.T) {
	gs := openTestStore(t)
	game := newOpenGame(t, gs)

	loaded, err := gs.GetById(context.Background(), game.Id)
	require.NoError(t, err)

	assert.Equal(t, "friday spin", loaded.Name)
	assert.True(t, decimal.RequireFromString("10.5").Equal(loaded.Wager))
	assert.Equal(t, model.Red, loaded.Player1.Color)
	assert.False(t, loaded.Player2.Present())
	assert.Nil(t, loaded.OutcomeColor)
	assert.Equal(t, model.GameOpen, loaded.GameStatus)
	assert.Equal(t, model.GameOpen, loaded.Status())
	assert.False(t, loaded.TimeCreated.IsZero())
}

func TestGetByIdNotFound(t *testing.T) {
	gs := openTestStore(t)

	_, err := gs.GetById(context.Background(), "missing")
	assert.True(t, errors.Is(err, reject.ErrNotFound))
}

func TestCompleteJoinOnlyOnce(t *testing.T) {
	gs := openTestStore(t)
	game := newOpenGame(t, gs)
	ctx := context.Background()

	joined, err := gs.CompleteJoin(ctx, game.Id, model.Player{Address: "0x01cf0e2f2f715450", Color: model.Blue})
	require.NoError(t, err)
	assert.Equal(t, model.GameFull, joined.GameStatus)
	assert.Equal(t, model.GameFull, joined.Status())
	assert.Equal(t, model.Blue, joined.Player2.Color)

	_, err = gs.CompleteJoin(ctx, game.Id, model.Player{Address: "0xf8d6e0586b0a20c7", Color: model.Red})
	assert.True(t, errors.Is(err, reject.ErrConflict))

	_, err = gs.CompleteJoin(ctx, "missing", model.Player{Address: "0xf8d6e0586b0a20c7", Color: model.Red})
	assert.True(t, errors.Is(err, reject.ErrNotFound))

	loaded, err := gs.GetById(ctx, game.Id)
	require.NoError(t, err)
	assert.Equal(t, "0x01cf0e2f2f715450", loaded.Player2.Address)
}

func TestConcurrentJoinsYieldOneWinner(t *testing.T) {
	gs := openTestStore(t)
	game := newOpenGame(t, gs)

	const joiners = 8
	var wg sync.WaitGroup
	errs := make(chan error, joiners)

	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gs.CompleteJoin(context.Background(), game.Id, model.Player{Address: uuid.New().String(), Color: model.Blue})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, reject.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, joiners-1, conflicts)
}

func TestTransitionFailuresAreStorageErrors(t *testing.T) {
	gs := openTestStore(t)
	game := newOpenGame(t, gs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gs.CompleteJoin(ctx, game.Id, model.Player{Address: "0x01cf0e2f2f715450", Color: model.Blue})
	assert.True(t, errors.Is(err, reject.ErrStorage), "got %v", err)

	loaded, err := gs.GetById(context.Background(), game.Id)
	require.NoError(t, err)
	assert.Equal(t, model.GameOpen, loaded.GameStatus)
}

func TestCompleteSettlementRequiresFullGame(t *testing.T) {
	gs := openTestStore(t)
	game := newOpenGame(t, gs)
	ctx := context.Background()

	_, err := gs.CompleteSettlement(ctx, game.Id, model.Red, model.ResultPlayer1)
	assert.True(t, errors.Is(err, reject.ErrConflict), "open game cannot settle")

	_, err = gs.CompleteJoin(ctx, game.Id, model.Player{Address: "0x01cf0e2f2f715450", Color: model.Blue})
	require.NoError(t, err)

	settled, err := gs.CompleteSettlement(ctx, game.Id, model.Red, model.ResultPlayer1)
	require.NoError(t, err)
	require.NotNil(t, settled.OutcomeColor)
	assert.Equal(t, model.Red, *settled.OutcomeColor)
	require.NotNil(t, settled.Result)
	assert.Equal(t, model.ResultPlayer1, *settled.Result)
	assert.Equal(t, model.GameSettled, settled.Status())

	_, err = gs.CompleteSettlement(ctx, game.Id, model.Blue, model.ResultPlayer2)
	assert.True(t, errors.Is(err, reject.ErrConflict))

	_, err = gs.CompleteSettlement(ctx, "missing", model.Blue, model.ResultPlayer2)
	assert.True(t, errors.Is(err, reject.ErrNotFound))
}

func TestRecordAndListLedgerEffects(t *testing.T) {
	gs := openTestStore(t)
	game := newOpenGame(t, gs)
	ctx := context.Background()

	require.NoError(t, gs.RecordDeposit(ctx, &model.Deposit{
		Id:            uuid.New().String(),
		GameId:        game.Id,
		Address:       game.Player1.Address,
		Currency:      game.Currency,
		Network:       game.Network,
		Amount:        game.Wager,
		TxId:          "tx-1",
		DepositStatus: model.DepositConfirmed,
	}))
	require.NoError(t, gs.RecordPayout(ctx, &model.Payout{
		Id:           uuid.New().String(),
		GameId:       game.Id,
		Address:      game.Player1.Address,
		Currency:     game.Currency,
		Network:      game.Network,
		Amount:       decimal.RequireFromString("19.95"),
		PayoutStatus: model.PayoutPaid,
		TxId:         "tx-2",
	}))

	deposits, err := gs.ListDeposits(ctx, game.Id)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, model.DepositConfirmed, deposits[0].DepositStatus)

	payouts, err := gs.ListPayouts(ctx, game.Id)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, "19.95", payouts[0].Amount.String())
	assert.Equal(t, model.PayoutPaid, payouts[0].PayoutStatus)

	none, err := gs.ListPayouts(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}
