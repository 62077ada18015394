package blockchain

import (
	"strings"

	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/onflow/flow-go-sdk/access/grpc"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// UFix64Decimals is the fixed precision of every Flow fungible token amount.
const UFix64Decimals = 8

type CurrencyConfig struct {
	Decimals        int    `mapstructure:"decimals"`
	ContractName    string `mapstructure:"contractName"`
	ContractAddress string `mapstructure:"contractAddress"`
	VaultPath       string `mapstructure:"vaultPath"`
	ReceiverPath    string `mapstructure:"receiverPath"`
}

type TreasuryConfig struct {
	Address       string `mapstructure:"address"`
	KmsResourceId string `mapstructure:"kmsResourceId"`
	KeyIndex      int    `mapstructure:"keyIndex"`
	PrivateKey    string `mapstructure:"privateKey"`
}

type NetworkConfig struct {
	AccessHost           string                    `mapstructure:"accessHost"`
	FungibleTokenAddress string                    `mapstructure:"fungibleTokenAddress"`
	Treasury             TreasuryConfig            `mapstructure:"treasury"`
	Currencies           map[string]CurrencyConfig `mapstructure:"currencies"`
}

// Networks is the per-network registry of access nodes, treasuries and token contracts.
type Networks struct {
	networks map[model.Network]NetworkConfig
}

var defaultAccessHosts = map[model.Network]string{
	model.Emulator: grpc.EmulatorHost,
	model.Testnet:  grpc.TestnetHost,
	model.Mainnet:  grpc.MainnetHost,
}

func LoadNetworks(v *viper.Viper) (*Networks, error) {
	raw := map[string]NetworkConfig{}
	if err := v.UnmarshalKey("networks", &raw); err != nil {
		return nil, reject.Config("cannot read networks configuration: %s", err.Error())
	}

	configs := map[model.Network]NetworkConfig{}
	for name, cfg := range raw {
		network, err := model.ParseNetwork(name)
		if err != nil {
			log.Warn().Str("network", name).Msg("Ignoring unknown network in configuration")
			continue
		}
		// treasury secrets are read leaf by leaf so environment overrides apply
		prefix := "networks." + name + ".treasury."
		if key := v.GetString(prefix + "privatekey"); key != "" {
			cfg.Treasury.PrivateKey = key
		}
		if resource := v.GetString(prefix + "kmsresourceid"); resource != "" {
			cfg.Treasury.KmsResourceId = resource
		}
		configs[network] = cfg
	}

	return NewNetworks(configs), nil
}

func NewNetworks(configs map[model.Network]NetworkConfig) *Networks {
	networks := map[model.Network]NetworkConfig{}
	for network, cfg := range configs {
		if cfg.AccessHost == "" {
			cfg.AccessHost = defaultAccessHosts[network]
		}
		// viper lower-cases map keys, symbols are matched upper-case
		currencies := map[string]CurrencyConfig{}
		for symbol, c := range cfg.Currencies {
			currencies[strings.ToUpper(symbol)] = c
		}
		cfg.Currencies = currencies
		networks[network] = cfg
	}
	return &Networks{networks: networks}
}

func (n *Networks) Configured() []model.Network {
	var configured []model.Network
	for network := range n.networks {
		configured = append(configured, network)
	}
	return configured
}

func (n *Networks) Network(network model.Network) (NetworkConfig, error) {
	cfg, ok := n.networks[network]
	if !ok {
		return NetworkConfig{}, reject.Config("network %s is not configured", network)
	}
	return cfg, nil
}

func (n *Networks) Currency(network model.Network, currency model.Currency) (CurrencyConfig, error) {
	cfg, err := n.Network(network)
	if err != nil {
		return CurrencyConfig{}, err
	}
	c, ok := cfg.Currencies[string(currency)]
	if !ok {
		return CurrencyConfig{}, reject.Validation("currency %s is not supported on %s", currency, network)
	}
	return c, nil
}

// Decimals returns the smallest-unit precision of currency. Zero means the
// currency is listed but its precision was never configured. Amounts travel
// as UFix64, so any precision other than UFix64Decimals is a misconfiguration.
func (n *Networks) Decimals(network model.Network, currency model.Currency) (int, error) {
	c, err := n.Currency(network, currency)
	if err != nil {
		return 0, err
	}
	if c.Decimals <= 0 {
		return 0, reject.Config("decimals not configured for currency %s on %s", currency, network)
	}
	if c.Decimals != UFix64Decimals {
		return 0, reject.Config("currency %s on %s has %d decimals, Flow tokens use %d", currency, network, c.Decimals, UFix64Decimals)
	}
	return c.Decimals, nil
}

func (n *Networks) Treasury(network model.Network) (Authorizer, error) {
	cfg, err := n.Network(network)
	if err != nil {
		return Authorizer{}, err
	}
	t := cfg.Treasury
	if t.Address == "" || (t.KmsResourceId == "" && t.PrivateKey == "") {
		return Authorizer{}, reject.Config("treasury is not configured for %s", network)
	}
	return Authorizer{
		KmsResourceId:        t.KmsResourceId,
		ResourceOwnerAddress: t.Address,
		KeyIndex:             t.KeyIndex,
		PrivateKey:           t.PrivateKey,
	}, nil
}
