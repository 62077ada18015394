package model

import (
	"fmt"
	"strings"
)

type Network string

const (
	Emulator Network = "emulator"
	Testnet  Network = "testnet"
	Mainnet  Network = "mainnet"
)

func ParseNetwork(value string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(value))); n {
	case Emulator, Testnet, Mainnet:
		return n, nil
	default:
		return "", fmt.Errorf("unsupported network %q", value)
	}
}
