package store

import (
	"context"
	"errors"
	"time"

	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// GameStore persists games and the ledger side effects recorded against them.
// State transitions are single conditional UPDATEs keyed on the current status,
// so the database row lock is what serializes joins and settlements per game.
type GameStore struct {
	db *gorm.DB
}

func Open(dialector gorm.Dialector) (*GameStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, reject.Storage(err)
	}

	sqlDb, err := db.DB()
	if err != nil {
		return nil, reject.Storage(err)
	}
	sqlDb.SetMaxOpenConns(50)
	sqlDb.SetConnMaxLifetime(time.Minute * 10)

	return &GameStore{db: db}, nil
}

func (s *GameStore) DB() *gorm.DB {
	return s.db
}

func (s *GameStore) Migrate() error {
	err := s.db.AutoMigrate(&model.Game{}, &model.Deposit{}, &model.Payout{}, &model.CustodialWallet{})
	if err != nil {
		return reject.Storage(err)
	}
	return nil
}

func (s *GameStore) Close() {
	sqlDb, err := s.db.DB()
	if err != nil {
		log.Warn().Err(err).Msg("Cannot access database handle to close it")
		return
	}
	if err := sqlDb.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing database")
	}
}

func (s *GameStore) Create(ctx context.Context, game *model.Game) error {
	now := time.Now().UTC()
	game.GameStatus = model.GameOpen
	game.TimeCreated = now
	game.TimeUpdated = now

	result := s.db.WithContext(ctx).Create(game)
	if result.Error != nil {
		log.Warn().Err(result.Error).Str("gameId", game.Id).Msg("error persisting game to database")
		return reject.Storage(result.Error)
	}
	return nil
}

func (s *GameStore) GetById(ctx context.Context, id string) (*model.Game, error) {
	var game model.Game
	result := s.db.WithContext(ctx).First(&game, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, reject.NotFound("game %s does not exist", id)
	}
	if result.Error != nil {
		return nil, reject.Storage(result.Error)
	}
	return &game, nil
}

func (s *GameStore) CompleteJoin(ctx context.Context, id string, player2 model.Player) (*model.Game, error) {
	return s.transition(ctx, id, model.GameOpen, map[string]any{
		"player2_address": player2.Address,
		"player2_color":   string(player2.Color),
		"game_status":     string(model.GameFull),
	})
}

func (s *GameStore) CompleteSettlement(ctx context.Context, id string, outcome model.Color, result model.GameResult) (*model.Game, error) {
	return s.transition(ctx, id, model.GameFull, map[string]any{
		"outcome_color": string(outcome),
		"result":        string(result),
		"game_status":   string(model.GameSettled),
	})
}

func (s *GameStore) transition(ctx context.Context, id string, from model.GameStatus, updates map[string]any) (*model.Game, error) {
	var game model.Game
	updates["time_updated"] = time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Model(&model.Game{}).
			Where("id = ? AND game_status = ?", id, string(from)).
			Updates(updates)
		if result.Error != nil {
			return reject.Storage(result.Error)
		}

		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Game{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return reject.Storage(err)
			}
			if count == 0 {
				return reject.NotFound("game %s does not exist", id)
			}
			return reject.Conflict("game %s is no longer %s", id, from)
		}

		if err := tx.First(&game, "id = ?", id).Error; err != nil {
			return reject.Storage(err)
		}
		return nil
	})

	if err != nil {
		if reject.KindOf(err) == "" {
			return nil, reject.Storage(err)
		}
		return nil, err
	}
	return &game, nil
}

func (s *GameStore) RecordDeposit(ctx context.Context, deposit *model.Deposit) error {
	if deposit.TimeCreated.IsZero() {
		deposit.TimeCreated = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(deposit).Error; err != nil {
		return reject.Storage(err)
	}
	return nil
}

func (s *GameStore) RecordPayout(ctx context.Context, payout *model.Payout) error {
	if payout.TimeCreated.IsZero() {
		payout.TimeCreated = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(payout).Error; err != nil {
		return reject.Storage(err)
	}
	return nil
}

func (s *GameStore) ListPayouts(ctx context.Context, gameId string) ([]model.Payout, error) {
	var payouts []model.Payout
	result := s.db.WithContext(ctx).
		Where("game_id = ?", gameId).
		Order("time_created").
		Find(&payouts)
	if result.Error != nil {
		return nil, reject.Storage(result.Error)
	}
	return payouts, nil
}

func (s *GameStore) ListDeposits(ctx context.Context, gameId string) ([]model.Deposit, error) {
	var deposits []model.Deposit
	result := s.db.WithContext(ctx).
		Where("game_id = ?", gameId).
		Order("time_created").
		Find(&deposits)
	if result.Error != nil {
		return nil, reject.Storage(result.Error)
	}
	return deposits, nil
}
