// Package engine implements the per-auction state machine, bid
// normalization and the escrow/withdrawal ledger.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
	"github.com/caryxiao/NFT-Auction/internal/event"
	"github.com/caryxiao/NFT-Auction/internal/infra"
)

// Journal receives every accepted mutation before it becomes observable.
// A nil journal disables persistence (tests, dry runs).
type Journal interface {
	Append(ctx context.Context, ev event.Event) error
}

// Auction is one listing's state machine. All four mutating operations
// are serialized behind the auction's own mutex; operations on different
// auctions never contend.
type Auction struct {
	mu sync.Mutex

	id        string
	item      domain.ItemHandle
	seller    domain.Party
	minBid    decimal.Decimal // floor, in normalized units
	createdAt time.Time
	deadline  time.Time
	state     string
	highest   *domain.Bid
	winner    *domain.Bid // fixed at the moment state became Ended

	registry *CurrencyRegistry
	escrow   *domain.EscrowBook
	logic    Logic

	vault   domain.FundVault
	custody domain.ItemCustody
	journal Journal
	clock   func() time.Time

	nextSeq           uint64
	initialized       bool
	proceedsWithdrawn bool
	itemClaimed       bool
}

// AuctionParams carries everything the factory supplies at listing time.
type AuctionParams struct {
	ID         string
	Item       domain.ItemHandle
	Seller     domain.Party
	MinBid     decimal.Decimal // in normalized units
	Duration   time.Duration
	NativeFeed domain.PriceOracle
	Vault      domain.FundVault
	Custody    domain.ItemCustody
	Journal    Journal
	Logic      Logic
	Clock      func() time.Time
}

// NewAuction constructs an uninitialized auction. Initialize must be
// called before any operation; the split exists so upgrade tooling can
// target the initialization entry point separately from construction.
func NewAuction(p AuctionParams) *Auction {
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	logic := p.Logic
	if logic == nil {
		logic = LogicV1{}
	}
	return &Auction{
		id:       p.ID,
		item:     p.Item,
		seller:   p.Seller,
		minBid:   p.MinBid,
		registry: newCurrencyRegistry(p.Seller, p.NativeFeed),
		escrow:   domain.NewEscrowBook(),
		logic:    logic,
		vault:    p.Vault,
		custody:  p.Custody,
		journal:  p.Journal,
		clock:    clock,
	}
}

// Party returns the identity the auction acts under when holding escrow.
func (a *Auction) Party() domain.Party {
	return domain.Party("auction:" + a.id)
}

// Initialize opens the auction: fixes creation time and deadline and
// journals the listing. It can run exactly once.
func (a *Auction) Initialize(ctx context.Context, duration time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return domain.ErrAlreadyInitialized
	}
	if duration <= 0 {
		return fmt.Errorf("%w: non-positive duration", domain.ErrInvalidConfiguration)
	}

	now := a.clock()
	a.createdAt = now
	a.deadline = now.Add(duration)
	a.state = domain.AuctionStateOpen
	a.initialized = true

	a.append(ctx, &event.AuctionCreatedEvent{
		BaseEvent: a.base(now),
		Seller:    a.seller,
		Item:      a.item,
		MinBid:    a.minBid,
		Deadline:  a.deadline.UnixMilli(),
		Version:   a.logic.Version(),
	})
	return nil
}

// ConfigureCurrency binds a price feed to a token currency. Seller-only,
// while open, before the first bid in that currency.
func (a *Auction) ConfigureCurrency(caller domain.Party, currency domain.Currency, feed domain.PriceOracle) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != domain.AuctionStateOpen {
		return fmt.Errorf("%w: auction not open", domain.ErrInvalidConfiguration)
	}
	return a.registry.configure(caller, currency, feed)
}

// PlaceBid normalizes and validates a bid, moves the amount into escrow
// and records the new highest. The previous highest bidder's entry in
// their bidding currency becomes refundable. A rejected bid leaves no
// state behind.
func (a *Auction) PlaceBid(ctx context.Context, bidder domain.Party, currency domain.Currency, amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock()
	if a.state != domain.AuctionStateOpen || !now.Before(a.deadline) {
		infra.GlobalMetrics.RecordBidRejected()
		return domain.ErrAuctionEndedOrExpired
	}
	if !amount.IsPositive() {
		infra.GlobalMetrics.RecordBidRejected()
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidBidAmount)
	}

	normalized, err := a.registry.normalize(ctx, currency, amount)
	if err != nil {
		infra.GlobalMetrics.RecordBidRejected()
		if domain.IsRetriable(err) {
			infra.GlobalMetrics.RecordOracleError()
		}
		return err
	}

	if err := a.logic.AcceptBid(a, normalized); err != nil {
		infra.GlobalMetrics.RecordBidRejected()
		return err
	}

	// Escrow transfer-in precedes acceptance; a failed transfer rejects
	// the bid with no state change.
	if err := a.vault.Deposit(ctx, bidder, currency, amount); err != nil {
		infra.GlobalMetrics.RecordBidRejected()
		return fmt.Errorf("%w: %v", domain.ErrEscrowTransferFailed, err)
	}

	// Bid events are pooled; the journal consumes the event synchronously
	// so it can be released right after the append.
	ev := event.AcquireBidPlacedEvent()
	ev.BaseEvent = a.base(now)
	ev.Bidder = bidder
	ev.Currency = currency
	ev.Amount = amount
	ev.Normalized = normalized
	a.append(ctx, ev)
	event.ReleaseBidPlacedEvent(ev)

	if a.highest != nil {
		prev := a.escrow.Get(a.highest.Bidder, a.highest.Currency)
		prev.Refundable = true
	}

	entry := a.escrow.Deposit(bidder, currency, amount)
	entry.Refundable = false

	a.highest = &domain.Bid{
		Bidder:     bidder,
		Currency:   currency,
		Amount:     amount,
		Normalized: normalized,
		PlacedAt:   now,
	}
	a.registry.markBid(currency)

	before := a.deadline
	a.logic.OnBidAccepted(now, a)
	if a.deadline.After(before) {
		a.append(ctx, &event.DeadlineExtendedEvent{
			BaseEvent: a.base(now),
			Deadline:  a.deadline.UnixMilli(),
		})
	}

	a.escrow.VerifyAll()
	infra.GlobalMetrics.RecordBidAccepted()

	slog.Info("bid accepted",
		slog.String("auction", a.id),
		slog.String("bidder", bidder.String()),
		slog.String("currency", currency.String()),
		slog.String("amount", amount.String()),
		slog.String("normalized", normalized.String()),
	)
	return nil
}

// EndAuction closes bidding once the deadline has passed. The winning
// bid is fixed and withdrawal/claim rights open. Callable by anyone;
// with no bids the item goes straight back to the seller.
func (a *Auction) EndAuction(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == domain.AuctionStateEnded {
		return domain.ErrAuctionAlreadyEnded
	}
	now := a.clock()
	if now.Before(a.deadline) {
		return domain.ErrAuctionNotYetExpired
	}

	if a.highest == nil {
		// No valid close-out: the item returns to the seller. Sequenced
		// before the terminal transition so a custody failure leaves the
		// auction endable again.
		if err := a.custody.TransferItem(ctx, a.Party(), a.seller, a.item); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrItemTransferFailed, err)
		}
	}

	a.state = domain.AuctionStateEnded
	a.winner = a.highest

	ev := &event.AuctionEndedEvent{BaseEvent: a.base(now)}
	if a.winner != nil {
		ev.Winner = a.winner.Bidder
		ev.Currency = a.winner.Currency
		ev.Amount = a.winner.Amount
		ev.Normalized = a.winner.Normalized
	} else {
		ev.NoBids = true
	}
	a.append(ctx, ev)

	if a.winner == nil {
		a.append(ctx, &event.ItemReturnedEvent{
			BaseEvent: a.base(now),
			Seller:    a.seller,
			Item:      a.item,
		})
	} else {
		// Everything except the winning entry is now refundable.
		for _, e := range a.escrow.Snapshot() {
			if e.Bidder == a.winner.Bidder && e.Currency == a.winner.Currency {
				continue
			}
			a.escrow.Get(e.Bidder, e.Currency).Refundable = true
		}
	}

	infra.GlobalMetrics.RecordAuctionEnded()
	slog.Info("auction ended",
		slog.String("auction", a.id),
		slog.Bool("no_bids", a.winner == nil),
	)
	return nil
}

// Withdraw releases funds owed to the caller in one currency: the
// winning proceeds for the seller, or the refundable balance for a
// superseded bidder. Ledger state is updated before the external
// transfer (checks-effects-interactions); a failed payout restores the
// entry, so the operation stays all-or-nothing.
func (a *Auction) Withdraw(ctx context.Context, caller domain.Party, currency domain.Currency) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != domain.AuctionStateEnded {
		return domain.ErrInvalidAuctionState
	}

	// The seller's claim on the winning currency is the proceeds; anything
	// else they hold (a superseded bid of their own) is a plain refund.
	if caller == a.seller && a.winner != nil && currency == a.winner.Currency {
		return a.withdrawProceeds(ctx, currency)
	}
	return a.withdrawRefund(ctx, caller, currency)
}

func (a *Auction) withdrawProceeds(ctx context.Context, currency domain.Currency) error {
	if a.proceedsWithdrawn {
		return domain.ErrAlreadyWithdrawn
	}

	amount := a.winner.Amount
	a.proceedsWithdrawn = true
	a.escrow.Withdraw(a.winner.Bidder, currency, amount)

	if err := a.vault.Payout(ctx, a.seller, currency, amount); err != nil {
		a.escrow.Restore(a.winner.Bidder, currency, amount)
		a.proceedsWithdrawn = false
		return fmt.Errorf("%w: %v", domain.ErrEscrowTransferFailed, err)
	}

	a.append(ctx, &event.FundsWithdrawnEvent{
		BaseEvent: a.base(a.clock()),
		Caller:    a.seller,
		Currency:  currency,
		Amount:    amount,
		Proceeds:  true,
	})
	a.escrow.VerifyAll()
	infra.GlobalMetrics.RecordWithdrawal()

	slog.Info("seller proceeds withdrawn",
		slog.String("auction", a.id),
		slog.String("currency", currency.String()),
		slog.String("amount", amount.String()),
	)
	return nil
}

func (a *Auction) withdrawRefund(ctx context.Context, caller domain.Party, currency domain.Currency) error {
	entry, ok := a.escrow.Lookup(caller, currency)
	if !ok || entry.Withdrawn {
		return domain.ErrInvalidWithdrawAmount
	}

	owed := entry.Amount
	if a.winner != nil && caller == a.winner.Bidder && currency == a.winner.Currency && !a.proceedsWithdrawn {
		// The winning amount belongs to the seller; only the surplus from
		// earlier superseded bids is refundable.
		owed = owed.Sub(a.winner.Amount)
	}
	if !owed.IsPositive() {
		return domain.ErrInvalidWithdrawAmount
	}

	a.escrow.Withdraw(caller, currency, owed)

	if err := a.vault.Payout(ctx, caller, currency, owed); err != nil {
		a.escrow.Restore(caller, currency, owed)
		return fmt.Errorf("%w: %v", domain.ErrEscrowTransferFailed, err)
	}

	a.append(ctx, &event.FundsWithdrawnEvent{
		BaseEvent: a.base(a.clock()),
		Caller:    caller,
		Currency:  currency,
		Amount:    owed,
	})
	a.escrow.VerifyAll()
	infra.GlobalMetrics.RecordWithdrawal()

	slog.Info("refund withdrawn",
		slog.String("auction", a.id),
		slog.String("bidder", caller.String()),
		slog.String("currency", currency.String()),
		slog.String("amount", owed.String()),
	)
	return nil
}

// ClaimItem transfers the item to the recorded winner, exactly once,
// only after the auction ended.
func (a *Auction) ClaimItem(ctx context.Context, caller domain.Party) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != domain.AuctionStateEnded {
		return domain.ErrInvalidAuctionState
	}
	if a.winner == nil || caller != a.winner.Bidder {
		return domain.ErrNotWinner
	}
	if a.itemClaimed {
		return domain.ErrAlreadyClaimed
	}

	a.itemClaimed = true
	if err := a.custody.TransferItem(ctx, a.Party(), caller, a.item); err != nil {
		a.itemClaimed = false
		return fmt.Errorf("%w: %v", domain.ErrItemTransferFailed, err)
	}

	a.append(ctx, &event.ItemClaimedEvent{
		BaseEvent: a.base(a.clock()),
		Winner:    caller,
		Item:      a.item,
	})
	infra.GlobalMetrics.RecordItemClaimed()

	slog.Info("item claimed",
		slog.String("auction", a.id),
		slog.String("winner", caller.String()),
	)
	return nil
}

func (a *Auction) base(now time.Time) event.BaseEvent {
	a.nextSeq++
	return event.BaseEvent{Seq: a.nextSeq, Ts: now.UnixMilli(), AuctionID: a.id}
}

// append journals an event. Persistence failures halt the engine: a
// journal that silently diverges from ledger state is worse than a stop.
func (a *Auction) append(ctx context.Context, ev event.Event) {
	if a.journal == nil {
		return
	}
	if err := a.journal.Append(ctx, ev); err != nil {
		panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
	}
}
