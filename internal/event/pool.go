package event

import (
	"sync"

	"github.com/shopspring/decimal"
)

// bidPlacedPool provides sync.Pool for the high-frequency bid event.
// Use this to reduce GC pressure during bidding bursts.
//
// Usage:
//
//	ev := AcquireBidPlacedEvent()
//	ev.Bidder = "buyer1"
//	// ... journal event ...
//	ReleaseBidPlacedEvent(ev)  // Return to pool after processing
var bidPlacedPool = sync.Pool{
	New: func() interface{} {
		return &BidPlacedEvent{}
	},
}

// AcquireBidPlacedEvent gets a BidPlacedEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireBidPlacedEvent() *BidPlacedEvent {
	return bidPlacedPool.Get().(*BidPlacedEvent)
}

// ReleaseBidPlacedEvent returns a BidPlacedEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseBidPlacedEvent(ev *BidPlacedEvent) {
	if ev == nil {
		return
	}
	// Reset all fields to zero values
	ev.Seq = 0
	ev.Ts = 0
	ev.AuctionID = ""
	ev.Bidder = ""
	ev.Currency = ""
	ev.Amount = decimal.Zero
	ev.Normalized = decimal.Zero

	bidPlacedPool.Put(ev)
}

// Warmup pre-allocates bid events to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 1000

	evs := make([]*BidPlacedEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireBidPlacedEvent())
	}
	for _, ev := range evs {
		ReleaseBidPlacedEvent(ev)
	}
}
