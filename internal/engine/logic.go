package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
)

// Logic is the versioned bid-acceptance policy an auction dispatches
// through. Each auction keeps the logic it was created with; the house
// can be upgraded to hand newer logic to subsequently created auctions.
type Logic interface {
	Version() string

	// AcceptBid validates a normalized bid against the auction's current
	// highest bid and floor. Called under the auction's lock.
	AcceptBid(a *Auction, normalized decimal.Decimal) error

	// OnBidAccepted runs after a bid is recorded and may adjust timing.
	// Called under the auction's lock.
	OnBidAccepted(now time.Time, a *Auction)
}

// LogicV1 is the original strict-increase policy.
type LogicV1 struct{}

func (LogicV1) Version() string { return "1.0.0" }

func (LogicV1) AcceptBid(a *Auction, normalized decimal.Decimal) error {
	if a.highest == nil {
		if normalized.LessThan(a.minBid) {
			return fmt.Errorf("%w: %s below floor %s", domain.ErrInvalidBidAmount, normalized, a.minBid)
		}
		return nil
	}
	// Strict increase; ties are rejected.
	if !normalized.GreaterThan(a.highest.Normalized) {
		return fmt.Errorf("%w: %s does not exceed highest %s",
			domain.ErrInvalidBidAmount, normalized, a.highest.Normalized)
	}
	return nil
}

func (LogicV1) OnBidAccepted(now time.Time, a *Auction) {}

// LogicV2 keeps the v1 acceptance policy and adds an anti-sniping rule:
// a bid landing inside the final window pushes the deadline out by the
// window length.
type LogicV2 struct {
	LogicV1
	ExtendWindow time.Duration
}

func (LogicV2) Version() string { return "2.0.0" }

func (l LogicV2) OnBidAccepted(now time.Time, a *Auction) {
	if l.ExtendWindow <= 0 {
		return
	}
	if a.deadline.Sub(now) < l.ExtendWindow {
		a.deadline = now.Add(l.ExtendWindow)
	}
}
