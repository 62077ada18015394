package blockchain

import (
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/shopspring/decimal"
)

// ScaleToUnits converts a human-denominated amount into the ledger's smallest unit.
// The fractional remainder is truncated so a payout is never rounded up.
func ScaleToUnits(amount decimal.Decimal, decimals int) (uint64, error) {
	if decimals <= 0 {
		return 0, reject.Config("decimal precision is not configured")
	}
	if amount.IsNegative() {
		return 0, reject.Validation("amount %s is negative", amount)
	}

	units := amount.Shift(int32(decimals)).Truncate(0).BigInt()
	if !units.IsUint64() {
		return 0, reject.Validation("amount %s overflows the ledger unit range", amount)
	}
	return units.Uint64(), nil
}
