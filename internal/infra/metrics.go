package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	auctionsCreated atomic.Uint64
	auctionsEnded   atomic.Uint64
	bidsAccepted    atomic.Uint64
	bidsRejected    atomic.Uint64
	withdrawals     atomic.Uint64
	itemsClaimed    atomic.Uint64
	oracleErrors    atomic.Uint64

	// Gauges
	activeFeeds atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordAuctionCreated records a new listing.
func (m *Metrics) RecordAuctionCreated() {
	m.auctionsCreated.Add(1)
}

// RecordAuctionEnded records a settled auction.
func (m *Metrics) RecordAuctionEnded() {
	m.auctionsEnded.Add(1)
}

// RecordBidAccepted records an accepted bid.
func (m *Metrics) RecordBidAccepted() {
	m.bidsAccepted.Add(1)
}

// RecordBidRejected records a rejected bid.
func (m *Metrics) RecordBidRejected() {
	m.bidsRejected.Add(1)
}

// RecordWithdrawal records a completed escrow payout.
func (m *Metrics) RecordWithdrawal() {
	m.withdrawals.Add(1)
}

// RecordItemClaimed records a claimed item.
func (m *Metrics) RecordItemClaimed() {
	m.itemsClaimed.Add(1)
}

// RecordOracleError records a failed quote.
func (m *Metrics) RecordOracleError() {
	m.oracleErrors.Add(1)
}

// IncrementFeeds increments connected feed workers by 1.
func (m *Metrics) IncrementFeeds() {
	m.activeFeeds.Add(1)
}

// DecrementFeeds decrements connected feed workers by 1.
func (m *Metrics) DecrementFeeds() {
	m.activeFeeds.Add(-1)
}

// Reset zeroes all metrics (mainly for testing).
func (m *Metrics) Reset() {
	m.auctionsCreated.Store(0)
	m.auctionsEnded.Store(0)
	m.bidsAccepted.Store(0)
	m.bidsRejected.Store(0)
	m.withdrawals.Store(0)
	m.itemsClaimed.Store(0)
	m.oracleErrors.Store(0)
	m.activeFeeds.Store(0)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	AuctionsCreated uint64
	AuctionsEnded   uint64
	BidsAccepted    uint64
	BidsRejected    uint64
	Withdrawals     uint64
	ItemsClaimed    uint64
	OracleErrors    uint64
	ActiveFeeds     int32
	Timestamp       time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		AuctionsCreated: m.auctionsCreated.Load(),
		AuctionsEnded:   m.auctionsEnded.Load(),
		BidsAccepted:    m.bidsAccepted.Load(),
		BidsRejected:    m.bidsRejected.Load(),
		Withdrawals:     m.withdrawals.Load(),
		ItemsClaimed:    m.itemsClaimed.Load(),
		OracleErrors:    m.oracleErrors.Load(),
		ActiveFeeds:     m.activeFeeds.Load(),
		Timestamp:       time.Now(),
	}
}
