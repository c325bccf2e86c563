package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceOracle produces the current price reference for a currency.
// Implementations must return ErrOracleUnavailable (possibly wrapped in an
// OracleError) when no fresh quote exists; the engine never retries.
type PriceOracle interface {
	Quote(ctx context.Context, currency Currency) (Quote, error)
}

// FundVault moves value between bidders and the auction's escrow.
// Deposit is called before a bid is accepted; Payout after ledger state has
// been updated (checks-effects-interactions).
type FundVault interface {
	Deposit(ctx context.Context, from Party, currency Currency, amount decimal.Decimal) error
	Payout(ctx context.Context, to Party, currency Currency, amount decimal.Decimal) error
}

// ItemCustody transfers ownership of the listed item. The engine calls this
// at most twice per auction: into escrow at creation, and out to the winner
// (or back to the seller) at settlement.
type ItemCustody interface {
	TransferItem(ctx context.Context, from, to Party, item ItemHandle) error
}
