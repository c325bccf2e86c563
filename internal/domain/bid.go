package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is an accepted bid. Amount is in the bid's original currency units;
// Normalized is the same value converted to the common unit of account.
type Bid struct {
	Bidder     Party           `json:"bidder"`
	Currency   Currency        `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	Normalized decimal.Decimal `json:"normalized"`
	PlacedAt   time.Time       `json:"placed_at"`
}

const (
	AuctionStateOpen  = "OPEN"
	AuctionStateEnded = "ENDED"
)

// IsHigherThan reports whether this bid strictly exceeds other in
// normalized terms. Ties are not higher.
func (b *Bid) IsHigherThan(other *Bid) bool {
	if other == nil {
		return true
	}
	return b.Normalized.GreaterThan(other.Normalized)
}
