package blockchain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/onflow/cadence"
	"github.com/onflow/flow-go-sdk"
	"github.com/onflow/flow-go-sdk/access/grpc"
	"github.com/onflow/flow-go-sdk/crypto"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const transferGasLimit = 9999

var (
	flowAddressPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{16}$`)

	insufficientFundsMarkers = []string{
		"less than or equal than the balance",
		"insufficient balance",
		"insufficient funds",
	}
)

type TxReceipt struct {
	TxId    string        `json:"txId"`
	Network model.Network `json:"network"`
	Units   uint64        `json:"units"`
}

// SignerSource resolves an Authorizer into something able to sign Flow envelopes.
type SignerSource interface {
	Signer(ctx context.Context, authorizer Authorizer) (crypto.Signer, error)
	PublicKey(ctx context.Context, authorizer Authorizer) (crypto.PublicKey, error)
}

type accessClient interface {
	GetLatestBlockHeader(ctx context.Context, isSealed bool) (*flow.BlockHeader, error)
	GetAccountAtLatestBlock(ctx context.Context, address flow.Address) (*flow.Account, error)
	SendTransaction(ctx context.Context, tx flow.Transaction) error
	GetTransactionResult(ctx context.Context, txID flow.Identifier) (*flow.TransactionResult, error)
	Close() error
}

// FlowTransferClient moves fungible tokens on Flow. A submitted transaction is
// never re-sent: the caller gets a receipt once it is sealed, or a TRANSFER error.
type FlowTransferClient struct {
	networks *Networks
	signers  SignerSource
	dial     func(host string) (accessClient, error)
	pollMin  time.Duration

	mu      sync.Mutex
	clients map[model.Network]accessClient
}

func NewFlowTransferClient(networks *Networks, signers SignerSource) *FlowTransferClient {
	return &FlowTransferClient{
		networks: networks,
		signers:  signers,
		dial: func(host string) (accessClient, error) {
			return grpc.NewClient(host)
		},
		pollMin: 500 * time.Millisecond,
		clients: map[model.Network]accessClient{},
	}
}

func ValidAddress(address string) bool {
	return flowAddressPattern.MatchString(address)
}

// NormalizeAddress renders an address as lower-case hex with the 0x prefix.
func NormalizeAddress(address string) string {
	trimmed := strings.ToLower(strings.TrimSpace(address))
	if trimmed == "" {
		return trimmed
	}
	return "0x" + strings.TrimPrefix(trimmed, "0x")
}

func (c *FlowTransferClient) Transfer(
	ctx context.Context,
	from Authorizer,
	to string,
	currency model.Currency,
	units uint64,
	network model.Network,
) (*TxReceipt, error) {
	netCfg, err := c.networks.Network(network)
	if err != nil {
		return nil, err
	}
	curCfg, err := c.networks.Currency(network, currency)
	if err != nil {
		return nil, err
	}
	// units are handed to UFix64 as is
	if _, err := c.networks.Decimals(network, currency); err != nil {
		return nil, err
	}
	script, err := transferScript(netCfg.FungibleTokenAddress, curCfg)
	if err != nil {
		return nil, err
	}

	client, err := c.client(network, netCfg.AccessHost)
	if err != nil {
		return nil, reject.Transfer(reject.ReasonNetworkUnreachable, err)
	}

	signer, err := c.signers.Signer(ctx, from)
	if err != nil {
		return nil, reject.Transfer(reject.ReasonRejected, fmt.Errorf("signer for %s unavailable: %w", from.ResourceOwnerAddress, err))
	}

	payer := flow.HexToAddress(from.ResourceOwnerAddress)
	account, err := client.GetAccountAtLatestBlock(ctx, payer)
	if err != nil {
		return nil, classifyRPCError(err)
	}
	if from.KeyIndex < 0 || from.KeyIndex >= len(account.Keys) {
		return nil, reject.Config("account %s has no key at index %d", payer.Hex(), from.KeyIndex)
	}
	key := account.Keys[from.KeyIndex]

	block, err := client.GetLatestBlockHeader(ctx, true)
	if err != nil {
		return nil, classifyRPCError(err)
	}

	tx := flow.NewTransaction().
		SetScript(script).
		SetGasLimit(transferGasLimit).
		SetReferenceBlockID(block.ID).
		SetProposalKey(payer, key.Index, key.SequenceNumber).
		SetPayer(payer).
		AddAuthorizer(payer)

	recipient := flow.HexToAddress(to)
	if err := tx.AddArgument(cadence.UFix64(units)); err != nil {
		return nil, reject.Transfer(reject.ReasonRejected, err)
	}
	if err := tx.AddArgument(cadence.BytesToAddress(recipient.Bytes())); err != nil {
		return nil, reject.Transfer(reject.ReasonRejected, err)
	}

	if err := tx.SignEnvelope(payer, key.Index, signer); err != nil {
		return nil, reject.Transfer(reject.ReasonRejected, err)
	}

	txId := tx.ID()
	log.Info().
		Str("network", string(network)).
		Str("currency", string(currency)).
		Uint64("units", units).
		Str("from", payer.Hex()).
		Str("to", recipient.Hex()).
		Str("txId", txId.Hex()).
		Msg("Sending transfer transaction")

	if err := client.SendTransaction(ctx, *tx); err != nil {
		return nil, classifyRPCError(err)
	}

	result, err := c.waitForSeal(ctx, client, txId)
	if err != nil {
		return nil, err
	}
	if result.Error != nil {
		log.Warn().Err(result.Error).Str("txId", txId.Hex()).Msg("Transfer transaction failed on chain")
		return nil, classifyExecutionError(result.Error)
	}

	log.Info().Str("txId", txId.Hex()).Msg("Transfer transaction sealed")
	return &TxReceipt{TxId: txId.Hex(), Network: network, Units: units}, nil
}

// VerifyTreasury checks that the configured treasury signer matches a key on the treasury account.
func (c *FlowTransferClient) VerifyTreasury(ctx context.Context, network model.Network) error {
	treasury, err := c.networks.Treasury(network)
	if err != nil {
		return err
	}
	netCfg, err := c.networks.Network(network)
	if err != nil {
		return err
	}
	client, err := c.client(network, netCfg.AccessHost)
	if err != nil {
		return reject.Transfer(reject.ReasonNetworkUnreachable, err)
	}

	account, err := client.GetAccountAtLatestBlock(ctx, flow.HexToAddress(treasury.ResourceOwnerAddress))
	if err != nil {
		return classifyRPCError(err)
	}
	if treasury.KeyIndex < 0 || treasury.KeyIndex >= len(account.Keys) {
		return reject.Config("treasury account on %s has no key at index %d", network, treasury.KeyIndex)
	}

	publicKey, err := c.signers.PublicKey(ctx, treasury)
	if err != nil {
		return reject.Config("cannot resolve treasury public key on %s: %s", network, err.Error())
	}
	if !account.Keys[treasury.KeyIndex].PublicKey.Equals(publicKey) {
		return reject.Config("treasury signer does not match account key on %s", network)
	}
	return nil
}

func (c *FlowTransferClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for network, client := range c.clients {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Str("network", string(network)).Msg("Error closing Flow access client")
		}
	}
	c.clients = map[model.Network]accessClient{}
}

func (c *FlowTransferClient) client(network model.Network, host string) (accessClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[network]; ok {
		return client, nil
	}
	client, err := c.dial(host)
	if err != nil {
		return nil, err
	}
	c.clients[network] = client
	return client, nil
}

func (c *FlowTransferClient) waitForSeal(ctx context.Context, client accessClient, id flow.Identifier) (*flow.TransactionResult, error) {
	b := &backoff.Backoff{
		Min:    c.pollMin,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for {
		result, err := client.GetTransactionResult(ctx, id)
		switch {
		case err != nil:
			log.Debug().Err(err).Str("txId", id.Hex()).Msg("Transaction result not available yet")
		case result.Status == flow.TransactionStatusSealed:
			return result, nil
		case result.Status == flow.TransactionStatusExpired:
			return nil, reject.Transfer(reject.ReasonRejected, fmt.Errorf("transaction %s expired", id.Hex()))
		}

		select {
		case <-ctx.Done():
			return nil, reject.Transfer(reject.ReasonTimeout, ctx.Err())
		case <-time.After(b.Duration()):
		}
	}
}

func classifyRPCError(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return reject.Transfer(reject.ReasonNetworkUnreachable, err)
	default:
		return reject.Transfer(reject.ReasonRejected, err)
	}
}

func classifyExecutionError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range insufficientFundsMarkers {
		if strings.Contains(msg, marker) {
			return reject.Transfer(reject.ReasonInsufficientFunds, err)
		}
	}
	return reject.Transfer(reject.ReasonRejected, err)
}
