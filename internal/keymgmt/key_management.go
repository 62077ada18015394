package keymgmt

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/blockchain"
	"github.com/onflow/flow-go-sdk/crypto"
	"github.com/onflow/flow-go-sdk/crypto/cloudkms"
	"github.com/rs/zerolog/log"
)

// SignerSource hands out Flow signers for custodial accounts. Accounts backed by
// Google Cloud KMS sign remotely; an authorizer carrying a raw key (emulator
// treasury) signs in memory.
type SignerSource struct {
	mu        sync.Mutex
	kmsClient *cloudkms.Client
	newClient func(ctx context.Context) (*cloudkms.Client, error)
}

func NewSignerSource() *SignerSource {
	return &SignerSource{
		newClient: func(ctx context.Context) (*cloudkms.Client, error) {
			return cloudkms.NewClient(ctx)
		},
	}
}

func (s *SignerSource) Signer(ctx context.Context, authorizer blockchain.Authorizer) (crypto.Signer, error) {
	if authorizer.PrivateKey != "" {
		privateKey, err := decodePrivateKey(authorizer.PrivateKey)
		if err != nil {
			return nil, err
		}
		signer, err := crypto.NewInMemorySigner(privateKey, crypto.SHA3_256)
		if err != nil {
			return nil, err
		}
		return signer, nil
	}

	key, err := cloudkms.KeyFromResourceID(authorizer.KmsResourceId)
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	signer, err := client.SignerForKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return signer, nil
}

func (s *SignerSource) PublicKey(ctx context.Context, authorizer blockchain.Authorizer) (crypto.PublicKey, error) {
	if authorizer.PrivateKey != "" {
		privateKey, err := decodePrivateKey(authorizer.PrivateKey)
		if err != nil {
			return nil, err
		}
		return privateKey.PublicKey(), nil
	}

	key, err := cloudkms.KeyFromResourceID(authorizer.KmsResourceId)
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	publicKey, _, _, err := GetPublicKey(ctx, client, &key)
	if err != nil {
		return nil, err
	}
	return *publicKey, nil
}

func (s *SignerSource) client(ctx context.Context) (*cloudkms.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kmsClient != nil {
		return s.kmsClient, nil
	}
	client, err := s.newClient(ctx)
	if err != nil {
		return nil, err
	}
	s.kmsClient = client
	return client, nil
}

func GetPublicKey(ctx context.Context, kmsClient *cloudkms.Client, kmsKey *cloudkms.Key) (*crypto.PublicKey, *crypto.HashAlgorithm, *crypto.SignatureAlgorithm, error) {
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    time.Minute,
		Factor: 5,
		Jitter: true,
	}

	deadline := time.Now().Add(60 * time.Second)

	log.Trace().Msg(fmt.Sprintf("Getting public key for KMS key, keyId: %s", kmsKey.KeyID))

	for {
		publicKey, hashAlgo, err := kmsClient.GetPublicKey(ctx, *kmsKey)
		if publicKey != nil {
			signAlgo := publicKey.Algorithm()
			return &publicKey, &hashAlgo, &signAlgo, nil
		}
		// non-retryable error
		if err != nil && !strings.Contains(err.Error(), "KEY_PENDING_GENERATION") {
			return nil, nil, nil, err
		}

		log.Trace().Msg("KMS key is pending creation, will retry")

		if time.Now().After(deadline) {
			err = fmt.Errorf("timeout while trying to get public key")
			log.Error().Err(err).Str("keyId", kmsKey.KeyID).Msg("KMS key never became available")
			return nil, nil, nil, err
		}

		select {
		case <-ctx.Done():
			return nil, nil, nil, ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
}

func decodePrivateKey(value string) (crypto.PrivateKey, error) {
	privateKey, err := crypto.DecodePrivateKeyHex(crypto.ECDSA_P256, strings.TrimPrefix(value, "0x"))
	if err != nil {
		return nil, fmt.Errorf("cannot decode private key: %w", err)
	}
	return privateKey, nil
}
