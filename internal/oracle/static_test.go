package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
)

func TestStaticFeed_Quote(t *testing.T) {
	feed := NewStaticFeed(domain.Currency("DDT"), 500000000, 8)

	q, err := feed.Quote(context.Background(), domain.Currency("DDT"))
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if !q.Price().Equal(decimal.NewFromInt(5)) {
		t.Errorf("Price = %v, want 5", q.Price())
	}
	if q.Decimals != 8 {
		t.Errorf("Decimals = %d, want 8", q.Decimals)
	}
}

func TestStaticFeed_UpdateAnswer(t *testing.T) {
	feed := NewStaticFeed(domain.Native, 800000000, 8)

	feed.UpdateAnswer(1600000000)

	q, err := feed.Quote(context.Background(), domain.Native)
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if !q.Price().Equal(decimal.NewFromInt(16)) {
		t.Errorf("Price = %v, want 16", q.Price())
	}
}

func TestStaticFeed_ZeroAnswerUnavailable(t *testing.T) {
	feed := NewStaticFeed(domain.Native, 0, 8)

	_, err := feed.Quote(context.Background(), domain.Native)
	if err == nil {
		t.Fatal("zero answer should fail")
	}
	if !domain.IsRetriable(err) {
		t.Error("oracle failure should be retriable")
	}
}

func TestStaticFeed_StaleQuoteUnavailable(t *testing.T) {
	feed := NewStaticFeed(domain.Native, 800000000, 8).WithHeartbeat(time.Nanosecond)

	time.Sleep(time.Millisecond)

	_, err := feed.Quote(context.Background(), domain.Native)
	if err == nil {
		t.Fatal("stale quote should fail")
	}
}
