package infra

import (
	"testing"
)

func TestMetrics_Counters(t *testing.T) {
	m := &Metrics{}

	m.RecordAuctionCreated()
	m.RecordBidAccepted()
	m.RecordBidAccepted()
	m.RecordBidRejected()
	m.RecordAuctionEnded()
	m.RecordWithdrawal()
	m.RecordItemClaimed()

	snap := m.Snapshot()

	if snap.AuctionsCreated != 1 {
		t.Errorf("Expected 1 auction created, got %d", snap.AuctionsCreated)
	}
	if snap.BidsAccepted != 2 {
		t.Errorf("Expected 2 bids accepted, got %d", snap.BidsAccepted)
	}
	if snap.BidsRejected != 1 {
		t.Errorf("Expected 1 bid rejected, got %d", snap.BidsRejected)
	}
	if snap.AuctionsEnded != 1 {
		t.Errorf("Expected 1 auction ended, got %d", snap.AuctionsEnded)
	}
	if snap.Withdrawals != 1 {
		t.Errorf("Expected 1 withdrawal, got %d", snap.Withdrawals)
	}
	if snap.ItemsClaimed != 1 {
		t.Errorf("Expected 1 item claimed, got %d", snap.ItemsClaimed)
	}
}

func TestMetrics_Feeds(t *testing.T) {
	m := &Metrics{}

	m.IncrementFeeds()
	m.IncrementFeeds()
	m.IncrementFeeds()

	snap := m.Snapshot()
	if snap.ActiveFeeds != 3 {
		t.Errorf("Expected 3 feeds, got %d", snap.ActiveFeeds)
	}

	m.DecrementFeeds()
	snap = m.Snapshot()
	if snap.ActiveFeeds != 2 {
		t.Errorf("Expected 2 feeds, got %d", snap.ActiveFeeds)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordAuctionCreated()
	m.RecordOracleError()
	m.IncrementFeeds()

	m.Reset()
	snap := m.Snapshot()

	if snap.AuctionsCreated != 0 {
		t.Error("Expected 0 auctions after reset")
	}
	if snap.OracleErrors != 0 {
		t.Error("Expected 0 oracle errors after reset")
	}
	if snap.ActiveFeeds != 0 {
		t.Error("Expected 0 feeds after reset")
	}
}

func TestCalculateBackoff(t *testing.T) {
	if got := CalculateBackoff(0); got != baseBackoff {
		t.Errorf("Expected base delay, got %v", got)
	}
	if got := CalculateBackoff(2); got != 4*baseBackoff {
		t.Errorf("Expected 4s, got %v", got)
	}
	if got := CalculateBackoff(30); got != maxBackoff {
		t.Errorf("Expected cap at %v, got %v", maxBackoff, got)
	}
}
