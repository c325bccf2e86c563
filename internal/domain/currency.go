package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency identifies a fungible currency accepted by an auction.
// The native value currency uses the Native sentinel; token currencies
// are identified by their symbol (e.g. "DDT").
type Currency string

// Native is the chain-native value currency.
const Native Currency = "NATIVE"

// IsNative reports whether the currency is the native value currency.
func (c Currency) IsNative() bool {
	return c == Native
}

// IsToken reports whether the currency is a token currency.
func (c Currency) IsToken() bool {
	return c != Native && c != ""
}

func (c Currency) String() string {
	return string(c)
}

// Quote is a single price reference for a currency, as produced by a feed.
// Answer is the raw feed value scaled by 10^Decimals, matching the
// aggregator convention (answer 500000000 with 8 decimals means 5.0).
type Quote struct {
	Currency  Currency        `json:"currency"`
	Answer    decimal.Decimal `json:"answer"`
	Decimals  int32           `json:"decimals"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Price returns the quote as a plain decimal price per unit.
func (q Quote) Price() decimal.Decimal {
	return q.Answer.Shift(-q.Decimals)
}

// IsZero reports whether the quote carries no usable price.
func (q Quote) IsZero() bool {
	return q.Answer.IsZero() || q.Answer.IsNegative()
}
