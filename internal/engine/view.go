package engine

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
)

// Read surface for external observers. Every accessor takes the auction
// lock and returns copies.

// ID returns the auction identifier.
func (a *Auction) ID() string { return a.id }

// Item returns the listed item handle.
func (a *Auction) Item() domain.ItemHandle { return a.item }

// Seller returns the listing identity.
func (a *Auction) Seller() domain.Party { return a.seller }

// Version reports the logic version this auction dispatches through.
func (a *Auction) Version() string { return a.logic.Version() }

// MinBid returns the floor in normalized units.
func (a *Auction) MinBid() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.minBid
}

// Deadline returns the current bidding deadline.
func (a *Auction) Deadline() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deadline
}

// Ended reports whether the auction reached its terminal state.
func (a *Auction) Ended() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == domain.AuctionStateEnded
}

// HighestBidder returns the current highest bidder ("" before any bid).
func (a *Auction) HighestBidder() domain.Party {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.highest == nil {
		return ""
	}
	return a.highest.Bidder
}

// HighestAmount returns the current highest bid in normalized units.
func (a *Auction) HighestAmount() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.highest == nil {
		return decimal.Zero
	}
	return a.highest.Normalized
}

// HighestBidOriginalAmount returns the highest bid in its own currency.
func (a *Auction) HighestBidOriginalAmount() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.highest == nil {
		return decimal.Zero
	}
	return a.highest.Amount
}

// HighestBidCurrency returns the currency of the highest bid.
func (a *Auction) HighestBidCurrency() domain.Currency {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.highest == nil {
		return ""
	}
	return a.highest.Currency
}

// Winner returns the bid fixed at settlement, or nil.
func (a *Auction) Winner() *domain.Bid {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.winner == nil {
		return nil
	}
	w := *a.winner
	return &w
}

// EscrowOf returns a copy of one escrow entry.
func (a *Auction) EscrowOf(bidder domain.Party, currency domain.Currency) (domain.EscrowEntry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.escrow.Lookup(bidder, currency)
	if !ok {
		return domain.EscrowEntry{}, false
	}
	return *e, true
}

// AuctionSnapshot is a point-in-time view of one auction's full state.
type AuctionSnapshot struct {
	ID       string               `json:"id"`
	Item     domain.ItemHandle    `json:"item"`
	Seller   domain.Party         `json:"seller"`
	State    string               `json:"state"`
	Version  string               `json:"version"`
	Deadline time.Time            `json:"deadline"`
	Highest  *domain.Bid          `json:"highest,omitempty"`
	Escrow   []domain.EscrowEntry `json:"escrow,omitempty"`
}

// Snapshot returns a copy of the auction's state.
func (a *Auction) Snapshot() AuctionSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := AuctionSnapshot{
		ID:       a.id,
		Item:     a.item,
		Seller:   a.seller,
		State:    a.state,
		Version:  a.logic.Version(),
		Deadline: a.deadline,
		Escrow:   a.escrow.Snapshot(),
	}
	if a.highest != nil {
		h := *a.highest
		snap.Highest = &h
	}
	return snap
}

// DumpState writes the snapshot to a file (for post-mortem).
func (a *Auction) DumpState(filename string) {
	slog.Info("Dumping auction state...", slog.String("file", filename))

	b, err := json.MarshalIndent(a.Snapshot(), "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
