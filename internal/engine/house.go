package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
	"github.com/caryxiao/NFT-Auction/internal/infra"
)

// House is the factory and registry for live auctions. It owns the
// collaborator wiring and the logic version handed to new auctions;
// upgrading the house logic affects subsequently created auctions only.
type House struct {
	mu       sync.RWMutex
	auctions map[string]*Auction
	logic    Logic

	nativeFeed domain.PriceOracle
	vault      domain.FundVault
	custody    domain.ItemCustody
	journal    Journal
	clock      func() time.Time
}

// HouseConfig wires the house's external collaborators.
type HouseConfig struct {
	NativeFeed domain.PriceOracle
	Vault      domain.FundVault
	Custody    domain.ItemCustody
	Journal    Journal
	Logic      Logic
	Clock      func() time.Time
}

// NewHouse creates an auction house.
func NewHouse(cfg HouseConfig) *House {
	logic := cfg.Logic
	if logic == nil {
		logic = LogicV1{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &House{
		auctions:   make(map[string]*Auction),
		logic:      logic,
		nativeFeed: cfg.NativeFeed,
		vault:      cfg.Vault,
		custody:    cfg.Custody,
		journal:    cfg.Journal,
		clock:      clock,
	}
}

// CreateAuction lists an item: the item moves into the new auction's
// custody, then the auction is initialized and registered.
func (h *House) CreateAuction(ctx context.Context, seller domain.Party, item domain.ItemHandle, minBid decimal.Decimal, duration time.Duration) (*Auction, error) {
	if seller == "" || item.IsZero() {
		return nil, fmt.Errorf("%w: missing seller or item", domain.ErrInvalidConfiguration)
	}
	if minBid.IsNegative() {
		return nil, fmt.Errorf("%w: negative floor", domain.ErrInvalidConfiguration)
	}
	// Checked before custody moves so a bad listing leaves the item put.
	if duration <= 0 {
		return nil, fmt.Errorf("%w: non-positive duration", domain.ErrInvalidConfiguration)
	}

	h.mu.RLock()
	logic := h.logic
	h.mu.RUnlock()

	a := NewAuction(AuctionParams{
		ID:         uuid.NewString(),
		Item:       item,
		Seller:     seller,
		MinBid:     minBid,
		NativeFeed: h.nativeFeed,
		Vault:      h.vault,
		Custody:    h.custody,
		Journal:    h.journal,
		Logic:      logic,
		Clock:      h.clock,
	})

	if err := h.custody.TransferItem(ctx, seller, a.Party(), item); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrItemTransferFailed, err)
	}
	if err := a.Initialize(ctx, duration); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.auctions[a.ID()] = a
	h.mu.Unlock()

	infra.GlobalMetrics.RecordAuctionCreated()
	slog.Info("auction created",
		slog.String("auction", a.ID()),
		slog.String("seller", seller.String()),
		slog.String("item", item.String()),
		slog.String("version", a.Version()),
	)
	return a, nil
}

// GetAuction returns a live auction by id.
func (h *House) GetAuction(id string) (*Auction, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	a, ok := h.auctions[id]
	return a, ok
}

// Auctions returns all registered auctions.
func (h *House) Auctions() []*Auction {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]*Auction, 0, len(h.auctions))
	for _, a := range h.auctions {
		result = append(result, a)
	}
	return result
}

// SetLogic swaps the logic version handed to subsequently created
// auctions. Existing auctions keep the logic they were created with.
func (h *House) SetLogic(logic Logic) {
	if logic == nil {
		return
	}
	h.mu.Lock()
	old := h.logic
	h.logic = logic
	h.mu.Unlock()

	slog.Info("house logic upgraded",
		slog.String("from", old.Version()),
		slog.String("to", logic.Version()),
	)
}

// Version reports the logic version new auctions will be created with.
func (h *House) Version() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.logic.Version()
}
