package event

import (
	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
)

// Event types appended to the auction journal.
const (
	TypeAuctionCreated   = "AUCTION_CREATED"
	TypeBidPlaced        = "BID_PLACED"
	TypeAuctionEnded     = "AUCTION_ENDED"
	TypeFundsWithdrawn   = "FUNDS_WITHDRAWN"
	TypeItemClaimed      = "ITEM_CLAIMED"
	TypeItemReturned     = "ITEM_RETURNED"
	TypeDeadlineExtended = "DEADLINE_EXTENDED"
)

// Event is a single journaled auction mutation.
type Event interface {
	GetSeq() uint64
	GetType() string
	GetAuctionID() string
}

// BaseEvent carries the fields shared by all journal events.
type BaseEvent struct {
	Seq       uint64 `json:"seq"`
	Ts        int64  `json:"ts"` // Unix milliseconds
	AuctionID string `json:"auction_id"`
}

func (e *BaseEvent) GetSeq() uint64       { return e.Seq }
func (e *BaseEvent) GetAuctionID() string { return e.AuctionID }

// AuctionCreatedEvent records a new listing.
type AuctionCreatedEvent struct {
	BaseEvent
	Seller   domain.Party      `json:"seller"`
	Item     domain.ItemHandle `json:"item"`
	MinBid   decimal.Decimal   `json:"min_bid"`
	Deadline int64             `json:"deadline"`
	Version  string            `json:"version"`
}

func (e *AuctionCreatedEvent) GetType() string { return TypeAuctionCreated }

// BidPlacedEvent records an accepted bid. This is the hot event type.
type BidPlacedEvent struct {
	BaseEvent
	Bidder     domain.Party    `json:"bidder"`
	Currency   domain.Currency `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	Normalized decimal.Decimal `json:"normalized"`
}

func (e *BidPlacedEvent) GetType() string { return TypeBidPlaced }

// AuctionEndedEvent records settlement: the winning bid is fixed and
// withdrawal/claim rights open.
type AuctionEndedEvent struct {
	BaseEvent
	Winner     domain.Party    `json:"winner,omitempty"`
	Currency   domain.Currency `json:"currency,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Normalized decimal.Decimal `json:"normalized"`
	NoBids     bool            `json:"no_bids,omitempty"`
}

func (e *AuctionEndedEvent) GetType() string { return TypeAuctionEnded }

// FundsWithdrawnEvent records a completed escrow payout.
type FundsWithdrawnEvent struct {
	BaseEvent
	Caller   domain.Party    `json:"caller"`
	Currency domain.Currency `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Proceeds bool            `json:"proceeds,omitempty"` // seller proceeds vs bidder refund
}

func (e *FundsWithdrawnEvent) GetType() string { return TypeFundsWithdrawn }

// ItemClaimedEvent records the winner taking custody of the item.
type ItemClaimedEvent struct {
	BaseEvent
	Winner domain.Party      `json:"winner"`
	Item   domain.ItemHandle `json:"item"`
}

func (e *ItemClaimedEvent) GetType() string { return TypeItemClaimed }

// ItemReturnedEvent records the item going back to the seller after an
// auction closed without bids.
type ItemReturnedEvent struct {
	BaseEvent
	Seller domain.Party      `json:"seller"`
	Item   domain.ItemHandle `json:"item"`
}

func (e *ItemReturnedEvent) GetType() string { return TypeItemReturned }

// DeadlineExtendedEvent records an anti-sniping deadline extension.
type DeadlineExtendedEvent struct {
	BaseEvent
	Deadline int64 `json:"deadline"`
}

func (e *DeadlineExtendedEvent) GetType() string { return TypeDeadlineExtended }
