package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
)

// maxNormalized caps the common unit of account at the 2^256 equivalent
// of the original accounting domain. Normalization above the cap fails
// instead of silently truncating.
var maxNormalized = decimal.New(1, 77)

// CurrencyRegistry is the per-auction mapping from currency to its price
// feed. It is mutated only under the owning auction's lock.
type CurrencyRegistry struct {
	seller  domain.Party
	feeds   map[domain.Currency]domain.PriceOracle
	bidSeen map[domain.Currency]bool
}

// newCurrencyRegistry builds a registry for one auction. The native
// currency is implicitly configured when a native feed is supplied.
func newCurrencyRegistry(seller domain.Party, nativeFeed domain.PriceOracle) *CurrencyRegistry {
	r := &CurrencyRegistry{
		seller:  seller,
		feeds:   make(map[domain.Currency]domain.PriceOracle),
		bidSeen: make(map[domain.Currency]bool),
	}
	if nativeFeed != nil {
		r.feeds[domain.Native] = nativeFeed
	}
	return r
}

// configure binds a price feed to a currency. Seller-only, once per
// currency, and only before the first bid in that currency.
func (r *CurrencyRegistry) configure(caller domain.Party, currency domain.Currency, feed domain.PriceOracle) error {
	if caller != r.seller {
		return fmt.Errorf("%w: only the seller may configure %s", domain.ErrInvalidConfiguration, currency)
	}
	if currency == "" || feed == nil {
		return fmt.Errorf("%w: missing currency or feed", domain.ErrInvalidConfiguration)
	}
	if r.bidSeen[currency] {
		return fmt.Errorf("%w: bidding already started in %s", domain.ErrInvalidConfiguration, currency)
	}
	if _, ok := r.feeds[currency]; ok {
		return fmt.Errorf("%w: %s already configured", domain.ErrInvalidConfiguration, currency)
	}
	r.feeds[currency] = feed
	return nil
}

// configured reports whether a currency can accept bids.
func (r *CurrencyRegistry) configured(currency domain.Currency) bool {
	_, ok := r.feeds[currency]
	return ok
}

// markBid records that a bid was accepted in a currency, freezing its
// configuration.
func (r *CurrencyRegistry) markBid(currency domain.Currency) {
	r.bidSeen[currency] = true
}

// normalize converts an amount in a currency to the common unit of
// account: amount x answer / 10^decimals.
func (r *CurrencyRegistry) normalize(ctx context.Context, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	feed, ok := r.feeds[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: currency %s not configured", domain.ErrInvalidConfiguration, currency)
	}

	q, err := feed.Quote(ctx, currency)
	if err != nil {
		return decimal.Zero, err
	}
	if q.IsZero() {
		return decimal.Zero, &domain.OracleError{Currency: currency, Err: domain.ErrOracleUnavailable}
	}

	normalized := amount.Mul(q.Answer).Shift(-q.Decimals)
	if normalized.GreaterThan(maxNormalized) {
		return decimal.Zero, fmt.Errorf("%w: %s %s normalizes beyond fixed-point width",
			domain.ErrArithmeticOverflow, amount, currency)
	}
	return normalized, nil
}
