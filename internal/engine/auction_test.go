package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
	"github.com/caryxiao/NFT-Auction/internal/infra"
	"github.com/caryxiao/NFT-Auction/internal/oracle"
)

const (
	seller = domain.Party("seller")
	alice  = domain.Party("alice")
	bob    = domain.Party("bob")
	carol  = domain.Party("carol")
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// failingVault rejects payouts on demand to exercise restore paths.
type failingVault struct {
	*infra.InMemoryVault
	failPayout bool
}

func (v *failingVault) Payout(ctx context.Context, to domain.Party, currency domain.Currency, amount decimal.Decimal) error {
	if v.failPayout {
		return errors.New("payout rejected")
	}
	return v.InMemoryVault.Payout(ctx, to, currency, amount)
}

// failingCustody rejects item transfers on demand.
type failingCustody struct {
	*infra.InMemoryCustody
	failTransfer bool
}

func (c *failingCustody) TransferItem(ctx context.Context, from, to domain.Party, item domain.ItemHandle) error {
	if c.failTransfer {
		return errors.New("transfer rejected")
	}
	return c.InMemoryCustody.TransferItem(ctx, from, to, item)
}

type fixture struct {
	auction *Auction
	vault   *failingVault
	custody *failingCustody
	clock   *fakeClock
	item    domain.ItemHandle
}

func newFixture(t *testing.T, logic Logic) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	vault := &failingVault{InMemoryVault: infra.NewInMemoryVault()}
	custody := &failingCustody{InMemoryCustody: infra.NewInMemoryCustody()}
	item := domain.ItemHandle{Collection: "vintage", TokenID: 7}

	a := NewAuction(AuctionParams{
		ID:         "a1",
		Item:       item,
		Seller:     seller,
		NativeFeed: oracle.NewStaticFeed(domain.Native, 800000000, 8),
		Vault:      vault,
		Custody:    custody,
		Logic:      logic,
		Clock:      clock.Now,
	})

	custody.SetOwner(item, a.Party())
	if err := a.Initialize(context.Background(), time.Hour); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := a.ConfigureCurrency(seller, tokenDDT, oracle.NewStaticFeed(tokenDDT, 500000000, 8)); err != nil {
		t.Fatalf("ConfigureCurrency failed: %v", err)
	}

	// Everyone starts with plenty of both currencies
	for _, p := range []domain.Party{alice, bob, carol} {
		vault.Mint(p, domain.Native, decimal.New(10_000, 0))
		vault.Mint(p, tokenDDT, decimal.New(10_000, 0))
	}

	return &fixture{auction: a, vault: vault, custody: custody, clock: clock, item: item}
}

func TestInitializeOnce(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.auction.Initialize(context.Background(), time.Hour); !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestAuctionLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.auction

	// 1. Alice opens with 100 tokens (price 5 -> 500)
	if err := a.PlaceBid(ctx, alice, tokenDDT, decimal.New(100, 0)); err != nil {
		t.Fatalf("first bid failed: %v", err)
	}
	if a.HighestBidder() != alice || !a.HighestAmount().Equal(decimal.New(500, 0)) {
		t.Fatalf("unexpected highest: %s %s", a.HighestBidder(), a.HighestAmount())
	}
	if !f.vault.Balance(alice, tokenDDT).Equal(decimal.New(9_900, 0)) {
		t.Errorf("alice balance not debited: %s", f.vault.Balance(alice, tokenDDT))
	}

	// 2. No withdrawals of any kind while bidding is open
	if err := a.Withdraw(ctx, alice, tokenDDT); !errors.Is(err, domain.ErrInvalidAuctionState) {
		t.Errorf("expected ErrInvalidAuctionState, got %v", err)
	}

	// 3. Bob outbids with 300 tokens (1500); Alice's entry becomes refundable
	if err := a.PlaceBid(ctx, bob, tokenDDT, decimal.New(300, 0)); err != nil {
		t.Fatalf("second bid failed: %v", err)
	}
	if entry, ok := a.EscrowOf(alice, tokenDDT); !ok || !entry.Refundable {
		t.Error("superseded entry should be refundable")
	}

	// 4. Alice's 200 tokens (1000) does not beat 1500
	if err := a.PlaceBid(ctx, alice, tokenDDT, decimal.New(200, 0)); !errors.Is(err, domain.ErrInvalidBidAmount) {
		t.Errorf("expected ErrInvalidBidAmount, got %v", err)
	}
	if a.HighestBidder() != bob {
		t.Error("rejected bid must not change the highest")
	}
	if !f.vault.Balance(alice, tokenDDT).Equal(decimal.New(9_900, 0)) {
		t.Error("rejected bid must not move funds")
	}

	// 5. Alice retakes the lead with 400 tokens (2000); escrow accumulates
	if err := a.PlaceBid(ctx, alice, tokenDDT, decimal.New(400, 0)); err != nil {
		t.Fatalf("third bid failed: %v", err)
	}
	entry, _ := a.EscrowOf(alice, tokenDDT)
	if !entry.Amount.Equal(decimal.New(500, 0)) {
		t.Errorf("expected accumulated escrow 500, got %s", entry.Amount)
	}
	if entry.Refundable {
		t.Error("active highest entry must not be refundable")
	}

	// 6. Carol switches currency: 300 native (price 8 -> 2400)
	if err := a.PlaceBid(ctx, carol, domain.Native, decimal.New(300, 0)); err != nil {
		t.Fatalf("native bid failed: %v", err)
	}
	if a.HighestBidCurrency() != domain.Native {
		t.Errorf("expected native highest, got %s", a.HighestBidCurrency())
	}

	// 7. Expiry: no more bids, then settle
	f.clock.Advance(2 * time.Hour)
	if err := a.PlaceBid(ctx, bob, tokenDDT, decimal.New(1_000, 0)); !errors.Is(err, domain.ErrAuctionEndedOrExpired) {
		t.Errorf("expected ErrAuctionEndedOrExpired, got %v", err)
	}
	if err := a.EndAuction(ctx); err != nil {
		t.Fatalf("EndAuction failed: %v", err)
	}
	if err := a.EndAuction(ctx); !errors.Is(err, domain.ErrAuctionAlreadyEnded) {
		t.Errorf("expected ErrAuctionAlreadyEnded, got %v", err)
	}
	if w := a.Winner(); w == nil || w.Bidder != carol {
		t.Fatalf("expected carol to win, got %+v", w)
	}

	// 8. Superseded bidders withdraw their full balance, once
	if err := a.Withdraw(ctx, alice, tokenDDT); err != nil {
		t.Fatalf("alice refund failed: %v", err)
	}
	if !f.vault.Balance(alice, tokenDDT).Equal(decimal.New(10_000, 0)) {
		t.Errorf("alice not made whole: %s", f.vault.Balance(alice, tokenDDT))
	}
	if err := a.Withdraw(ctx, alice, tokenDDT); !errors.Is(err, domain.ErrInvalidWithdrawAmount) {
		t.Errorf("expected ErrInvalidWithdrawAmount on repeat, got %v", err)
	}
	if err := a.Withdraw(ctx, bob, tokenDDT); err != nil {
		t.Fatalf("bob refund failed: %v", err)
	}

	// 9. The winner has nothing to withdraw in the winning currency
	if err := a.Withdraw(ctx, carol, domain.Native); !errors.Is(err, domain.ErrInvalidWithdrawAmount) {
		t.Errorf("expected ErrInvalidWithdrawAmount for winner, got %v", err)
	}

	// 10. Seller takes the winning amount in the winning currency, once
	if err := a.Withdraw(ctx, seller, tokenDDT); !errors.Is(err, domain.ErrInvalidWithdrawAmount) {
		t.Errorf("expected ErrInvalidWithdrawAmount for wrong currency, got %v", err)
	}
	if err := a.Withdraw(ctx, seller, domain.Native); err != nil {
		t.Fatalf("seller proceeds failed: %v", err)
	}
	if !f.vault.Balance(seller, domain.Native).Equal(decimal.New(300, 0)) {
		t.Errorf("expected seller proceeds 300, got %s", f.vault.Balance(seller, domain.Native))
	}
	if err := a.Withdraw(ctx, seller, domain.Native); !errors.Is(err, domain.ErrAlreadyWithdrawn) {
		t.Errorf("expected ErrAlreadyWithdrawn, got %v", err)
	}

	// 11. Only the winner claims the item, exactly once
	if err := a.ClaimItem(ctx, alice); !errors.Is(err, domain.ErrNotWinner) {
		t.Errorf("expected ErrNotWinner, got %v", err)
	}
	if err := a.ClaimItem(ctx, carol); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if owner, _ := f.custody.OwnerOf(f.item); owner != carol {
		t.Errorf("expected carol to own the item, got %s", owner)
	}
	if err := a.ClaimItem(ctx, carol); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestBidValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if err := f.auction.PlaceBid(ctx, alice, domain.Native, decimal.Zero); !errors.Is(err, domain.ErrInvalidBidAmount) {
		t.Errorf("expected ErrInvalidBidAmount for zero, got %v", err)
	}
	if err := f.auction.PlaceBid(ctx, alice, domain.Native, decimal.New(-5, 0)); !errors.Is(err, domain.ErrInvalidBidAmount) {
		t.Errorf("expected ErrInvalidBidAmount for negative, got %v", err)
	}
	if err := f.auction.PlaceBid(ctx, alice, "UNKNOWN", decimal.New(100, 0)); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for unknown currency, got %v", err)
	}
}

func TestTieRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if err := f.auction.PlaceBid(ctx, alice, tokenDDT, decimal.New(100, 0)); err != nil {
		t.Fatalf("first bid failed: %v", err)
	}
	// Same normalized value, different bidder
	if err := f.auction.PlaceBid(ctx, bob, tokenDDT, decimal.New(100, 0)); !errors.Is(err, domain.ErrInvalidBidAmount) {
		t.Errorf("expected ErrInvalidBidAmount for tie, got %v", err)
	}
}

func TestBidBelowFloor(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	vault := infra.NewInMemoryVault()
	vault.Mint(alice, domain.Native, decimal.New(1_000, 0))

	a := NewAuction(AuctionParams{
		ID:         "a1",
		Item:       domain.ItemHandle{Collection: "vintage", TokenID: 1},
		Seller:     seller,
		MinBid:     decimal.New(1_000, 0),
		NativeFeed: oracle.NewStaticFeed(domain.Native, 800000000, 8),
		Vault:      vault,
		Custody:    infra.NewInMemoryCustody(),
		Clock:      clock.Now,
	})
	if err := a.Initialize(context.Background(), time.Hour); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// 100 native normalizes to 800, below the floor of 1000
	if err := a.PlaceBid(context.Background(), alice, domain.Native, decimal.New(100, 0)); !errors.Is(err, domain.ErrInvalidBidAmount) {
		t.Errorf("expected ErrInvalidBidAmount below floor, got %v", err)
	}
	if err := a.PlaceBid(context.Background(), alice, domain.Native, decimal.New(200, 0)); err != nil {
		t.Errorf("bid above floor should pass, got %v", err)
	}
}

func TestSelfOutbid(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.auction

	if err := a.PlaceBid(ctx, alice, domain.Native, decimal.New(100, 0)); err != nil {
		t.Fatalf("first bid failed: %v", err)
	}
	if err := a.PlaceBid(ctx, alice, domain.Native, decimal.New(200, 0)); err != nil {
		t.Fatalf("self outbid failed: %v", err)
	}

	entry, _ := a.EscrowOf(alice, domain.Native)
	if !entry.Amount.Equal(decimal.New(300, 0)) {
		t.Fatalf("expected accumulated 300, got %s", entry.Amount)
	}
	if entry.Refundable {
		t.Error("own highest entry must not be refundable")
	}

	f.clock.Advance(2 * time.Hour)
	if err := a.EndAuction(ctx); err != nil {
		t.Fatalf("EndAuction failed: %v", err)
	}

	// Only the surplus over the winning amount is refundable
	if err := a.Withdraw(ctx, alice, domain.Native); err != nil {
		t.Fatalf("winner surplus refund failed: %v", err)
	}
	if !f.vault.Balance(alice, domain.Native).Equal(decimal.New(9_800, 0)) {
		t.Errorf("expected alice at 9800 after surplus refund, got %s", f.vault.Balance(alice, domain.Native))
	}

	// The winning amount still reaches the seller
	if err := a.Withdraw(ctx, seller, domain.Native); err != nil {
		t.Fatalf("seller proceeds failed: %v", err)
	}
	if !f.vault.Balance(seller, domain.Native).Equal(decimal.New(200, 0)) {
		t.Errorf("expected seller proceeds 200, got %s", f.vault.Balance(seller, domain.Native))
	}
}

func TestSellerRecoversOwnSupersededBid(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.auction
	f.vault.Mint(seller, tokenDDT, decimal.New(1_000, 0))

	// The seller bids in their own auction and is outbid in another currency
	if err := a.PlaceBid(ctx, seller, tokenDDT, decimal.New(100, 0)); err != nil {
		t.Fatalf("seller bid failed: %v", err)
	}
	if err := a.PlaceBid(ctx, bob, domain.Native, decimal.New(300, 0)); err != nil {
		t.Fatalf("outbid failed: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	if err := a.EndAuction(ctx); err != nil {
		t.Fatalf("EndAuction failed: %v", err)
	}

	entry, ok := a.EscrowOf(seller, tokenDDT)
	if !ok || !entry.Refundable {
		t.Fatalf("seller's superseded entry should be refundable: %+v", entry)
	}

	// The losing-currency withdrawal is a refund, not proceeds
	if err := a.Withdraw(ctx, seller, tokenDDT); err != nil {
		t.Fatalf("seller refund failed: %v", err)
	}
	if !f.vault.Balance(seller, tokenDDT).Equal(decimal.New(1_000, 0)) {
		t.Errorf("seller not made whole: %s", f.vault.Balance(seller, tokenDDT))
	}
	if err := a.Withdraw(ctx, seller, tokenDDT); !errors.Is(err, domain.ErrInvalidWithdrawAmount) {
		t.Errorf("expected ErrInvalidWithdrawAmount on repeat, got %v", err)
	}

	// The winning-currency proceeds are untouched by the refund
	if err := a.Withdraw(ctx, seller, domain.Native); err != nil {
		t.Fatalf("seller proceeds failed: %v", err)
	}
	if !f.vault.Balance(seller, domain.Native).Equal(decimal.New(300, 0)) {
		t.Errorf("expected seller proceeds 300, got %s", f.vault.Balance(seller, domain.Native))
	}
}

func TestEndAuctionBeforeDeadline(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.auction.EndAuction(context.Background()); !errors.Is(err, domain.ErrAuctionNotYetExpired) {
		t.Errorf("expected ErrAuctionNotYetExpired, got %v", err)
	}
}

func TestEndAuctionNoBids(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.clock.Advance(2 * time.Hour)
	if err := f.auction.EndAuction(ctx); err != nil {
		t.Fatalf("EndAuction failed: %v", err)
	}

	// The item goes straight back to the seller
	if owner, _ := f.custody.OwnerOf(f.item); owner != seller {
		t.Errorf("expected seller to own the item, got %s", owner)
	}
	if w := f.auction.Winner(); w != nil {
		t.Errorf("expected no winner, got %+v", w)
	}
	if err := f.auction.ClaimItem(ctx, alice); !errors.Is(err, domain.ErrNotWinner) {
		t.Errorf("expected ErrNotWinner, got %v", err)
	}
}

func TestOracleFailureLeavesNoState(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	stale := oracle.NewStaticFeed("WOBBLY", 500000000, 8)
	if err := f.auction.ConfigureCurrency(seller, "WOBBLY", stale); err != nil {
		t.Fatalf("ConfigureCurrency failed: %v", err)
	}
	stale.UpdateAnswer(0)

	err := f.auction.PlaceBid(ctx, alice, "WOBBLY", decimal.New(100, 0))
	if !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}
	if !domain.IsRetriable(err) {
		t.Error("oracle failure should be retriable")
	}
	if f.auction.HighestBidder() != "" {
		t.Error("failed bid must not change the highest")
	}
	if !f.vault.Balance(alice, "WOBBLY").IsZero() {
		t.Error("failed bid must not move funds")
	}
}

func TestDepositFailureRejectsBid(t *testing.T) {
	f := newFixture(t, nil)

	// Dave has no funds
	err := f.auction.PlaceBid(context.Background(), "dave", domain.Native, decimal.New(100, 0))
	if !errors.Is(err, domain.ErrEscrowTransferFailed) {
		t.Fatalf("expected ErrEscrowTransferFailed, got %v", err)
	}
	if f.auction.HighestBidder() != "" {
		t.Error("failed deposit must not change the highest")
	}
}

func TestPayoutFailureRestoresEscrow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.auction

	if err := a.PlaceBid(ctx, alice, domain.Native, decimal.New(100, 0)); err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	if err := a.PlaceBid(ctx, bob, domain.Native, decimal.New(200, 0)); err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	if err := a.EndAuction(ctx); err != nil {
		t.Fatalf("EndAuction failed: %v", err)
	}

	// Refund transfer fails: the entry must be fully restored
	f.vault.failPayout = true
	if err := a.Withdraw(ctx, alice, domain.Native); !errors.Is(err, domain.ErrEscrowTransferFailed) {
		t.Fatalf("expected ErrEscrowTransferFailed, got %v", err)
	}
	entry, ok := a.EscrowOf(alice, domain.Native)
	if !ok || entry.Withdrawn || !entry.Amount.Equal(decimal.New(100, 0)) {
		t.Fatalf("entry not restored: %+v", entry)
	}

	// The same holds for seller proceeds
	if err := a.Withdraw(ctx, seller, domain.Native); !errors.Is(err, domain.ErrEscrowTransferFailed) {
		t.Fatalf("expected ErrEscrowTransferFailed, got %v", err)
	}

	// Both succeed once the vault recovers
	f.vault.failPayout = false
	if err := a.Withdraw(ctx, alice, domain.Native); err != nil {
		t.Fatalf("retry refund failed: %v", err)
	}
	if err := a.Withdraw(ctx, seller, domain.Native); err != nil {
		t.Fatalf("retry proceeds failed: %v", err)
	}
	if !f.vault.Balance(alice, domain.Native).Equal(decimal.New(10_000, 0)) {
		t.Errorf("alice not made whole: %s", f.vault.Balance(alice, domain.Native))
	}
}

func TestItemTransferFailures(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.auction

	if err := a.PlaceBid(ctx, alice, domain.Native, decimal.New(100, 0)); err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	if err := a.EndAuction(ctx); err != nil {
		t.Fatalf("EndAuction failed: %v", err)
	}

	// Custody failure surfaces as an item transport error, distinct from
	// escrow failures, and the claim stays retryable
	f.custody.failTransfer = true
	err := a.ClaimItem(ctx, alice)
	if !errors.Is(err, domain.ErrItemTransferFailed) {
		t.Fatalf("expected ErrItemTransferFailed, got %v", err)
	}
	if errors.Is(err, domain.ErrEscrowTransferFailed) {
		t.Error("custody failure must not report as escrow failure")
	}

	f.custody.failTransfer = false
	if err := a.ClaimItem(ctx, alice); err != nil {
		t.Fatalf("retry claim failed: %v", err)
	}
	if owner, _ := f.custody.OwnerOf(f.item); owner != alice {
		t.Errorf("expected alice to own the item, got %s", owner)
	}
}

func TestEndAuctionNoBidsReturnFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.clock.Advance(2 * time.Hour)

	// A failed return leaves the auction endable
	f.custody.failTransfer = true
	if err := f.auction.EndAuction(ctx); !errors.Is(err, domain.ErrItemTransferFailed) {
		t.Fatalf("expected ErrItemTransferFailed, got %v", err)
	}
	if f.auction.Ended() {
		t.Fatal("failed return must not reach the terminal state")
	}

	f.custody.failTransfer = false
	if err := f.auction.EndAuction(ctx); err != nil {
		t.Fatalf("retry EndAuction failed: %v", err)
	}
	if owner, _ := f.custody.OwnerOf(f.item); owner != seller {
		t.Errorf("expected seller to own the item, got %s", owner)
	}
}

func TestConfigureCurrencyAfterEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.clock.Advance(2 * time.Hour)
	if err := f.auction.EndAuction(ctx); err != nil {
		t.Fatalf("EndAuction failed: %v", err)
	}

	err := f.auction.ConfigureCurrency(seller, "LATE", oracle.NewStaticFeed("LATE", 100000000, 8))
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration after end, got %v", err)
	}
}

func TestAntiSnipingExtension(t *testing.T) {
	f := newFixture(t, LogicV2{ExtendWindow: 10 * time.Minute})
	ctx := context.Background()
	a := f.auction

	if a.Version() != "2.0.0" {
		t.Fatalf("expected version 2.0.0, got %s", a.Version())
	}

	// A bid well before the final window leaves the deadline alone
	if err := a.PlaceBid(ctx, alice, domain.Native, decimal.New(100, 0)); err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	original := a.Deadline()

	// A bid inside the final window pushes the deadline out
	f.clock.Advance(55 * time.Minute)
	if err := a.PlaceBid(ctx, bob, domain.Native, decimal.New(200, 0)); err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	extended := a.Deadline()
	if !extended.After(original) {
		t.Fatal("deadline should have been extended")
	}
	if want := f.clock.Now().Add(10 * time.Minute); !extended.Equal(want) {
		t.Errorf("expected deadline %v, got %v", want, extended)
	}

	// Settlement waits for the extended deadline
	f.clock.Advance(6 * time.Minute)
	if err := a.EndAuction(ctx); !errors.Is(err, domain.ErrAuctionNotYetExpired) {
		t.Errorf("expected ErrAuctionNotYetExpired, got %v", err)
	}
	f.clock.Advance(5 * time.Minute)
	if err := a.EndAuction(ctx); err != nil {
		t.Errorf("EndAuction after extension failed: %v", err)
	}
}
