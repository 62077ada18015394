package model

import (
	"fmt"
	"strings"
)

// Currency is a ledger asset symbol. Which of them a network accepts is
// decided by its configuration.
type Currency string

const (
	Flow Currency = "FLOW"
	Fusd Currency = "FUSD"
	Usdc Currency = "USDC"
)

func ParseCurrency(value string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(value))); c {
	case Flow, Fusd, Usdc:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported currency %q", value)
	}
}
