// Package oracle provides price feed implementations consumed by the
// auction engine through the domain.PriceOracle port.
package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
)

// StaticFeed serves a fixed answer for one currency, aggregator style:
// a raw answer scaled by 10^decimals plus a heartbeat after which the
// quote is considered stale. Operators use it for local runs; tests use
// it to pin exact normalization values.
type StaticFeed struct {
	mu        sync.RWMutex
	currency  domain.Currency
	answer    decimal.Decimal
	decimals  int32
	updatedAt time.Time
	heartbeat time.Duration // 0 disables staleness checks
}

// NewStaticFeed creates a feed with the given raw answer and decimals,
// e.g. answer 500000000 with 8 decimals quotes a price of 5.0.
func NewStaticFeed(currency domain.Currency, answer int64, decimals int32) *StaticFeed {
	return &StaticFeed{
		currency:  currency,
		answer:    decimal.NewFromInt(answer),
		decimals:  decimals,
		updatedAt: time.Now(),
	}
}

// WithHeartbeat sets the maximum quote age before Quote fails stale.
func (f *StaticFeed) WithHeartbeat(d time.Duration) *StaticFeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeat = d
	return f
}

// UpdateAnswer replaces the raw answer and refreshes the quote time.
func (f *StaticFeed) UpdateAnswer(answer int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answer = decimal.NewFromInt(answer)
	f.updatedAt = time.Now()
}

// Quote implements domain.PriceOracle.
func (f *StaticFeed) Quote(ctx context.Context, currency domain.Currency) (domain.Quote, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	q := domain.Quote{
		Currency:  currency,
		Answer:    f.answer,
		Decimals:  f.decimals,
		UpdatedAt: f.updatedAt,
	}
	if q.IsZero() {
		return domain.Quote{}, &domain.OracleError{Currency: currency, Err: domain.ErrOracleUnavailable}
	}
	if f.heartbeat > 0 && time.Since(f.updatedAt) > f.heartbeat {
		return domain.Quote{}, &domain.OracleError{Currency: currency, Err: domain.ErrOracleUnavailable}
	}
	return q, nil
}
