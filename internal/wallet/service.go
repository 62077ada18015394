package wallet

import (
	"context"
	"errors"

	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountCreated is emitted by the key management service once a custodial
// Flow account exists for a KMS key.
type AccountCreated struct {
	PublicKey  string `json:"originatingPublicKey"`
	Address    string `json:"address"`
	ResourceId string `json:"resourceId"`
	KeyIndex   int    `json:"keyIndex"`
}

// Service resolves player addresses to the custodial signer the backend holds for them.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) FindAuthorizer(ctx context.Context, address string) (blockchain.Authorizer, error) {
	var wallet model.CustodialWallet
	result := s.db.WithContext(ctx).
		Where("address = ?", blockchain.NormalizeAddress(address)).
		First(&wallet)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return blockchain.Authorizer{}, reject.Validation("no custodial wallet for address %s", address)
	}
	if result.Error != nil {
		return blockchain.Authorizer{}, reject.Storage(result.Error)
	}
	if wallet.ResourceId == "" {
		return blockchain.Authorizer{}, reject.Config("custodial wallet %s has no signing key", address)
	}

	return blockchain.Authorizer{
		KmsResourceId:        wallet.ResourceId,
		ResourceOwnerAddress: wallet.Address,
		KeyIndex:             wallet.KeyIndex,
	}, nil
}

// Register upserts the wallet row for an account, keyed on its address.
func (s *Service) Register(ctx context.Context, account AccountCreated) error {
	if !blockchain.ValidAddress(account.Address) {
		return reject.Validation("malformed address %q", account.Address)
	}
	if account.ResourceId == "" {
		return reject.Validation("account %s carries no key resource", account.Address)
	}

	wallet := model.CustodialWallet{
		ResourceId: account.ResourceId,
		PublicKey:  account.PublicKey,
		Address:    blockchain.NormalizeAddress(account.Address),
		KeyIndex:   account.KeyIndex,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"resource_id", "public_key", "key_index"}),
		}).
		Create(&wallet)
	if result.Error != nil {
		return reject.Storage(result.Error)
	}
	return nil
}

func (s *Service) HandleAccountCreated(ctx context.Context, data []byte) error {
	messagePayload, err := utils.JsonDecodeByteStream[AccountCreated](data)
	if err != nil {
		return reject.Validation("cannot parse AccountCreated message: %s", err)
	}

	if err := s.Register(ctx, *messagePayload); err != nil {
		return err
	}

	log.Info().Str("address", messagePayload.Address).Msg("Custodial wallet registered")
	return nil
}
