package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/caryxiao/NFT-Auction/internal/domain"
)

// QuoteService manages the latest price reference for every currency the
// auction house accepts. Feed workers push quotes through the channel; the
// engine reads through the domain.PriceOracle port.
type QuoteService struct {
	mu        sync.RWMutex
	quotes    map[domain.Currency]domain.Quote
	maxAge    time.Duration
	quoteChan chan []domain.Quote
}

// NewQuoteService creates a new QuoteService instance
func NewQuoteService(maxAge time.Duration) *QuoteService {
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &QuoteService{
		quotes:    make(map[domain.Currency]domain.Quote),
		maxAge:    maxAge,
		quoteChan: make(chan []domain.Quote, 1000), // buffer absorbs feed bursts
	}
}

// Quote implements domain.PriceOracle. A missing, zero or stale quote is
// an oracle failure, not a crash.
func (s *QuoteService) Quote(ctx context.Context, currency domain.Currency) (domain.Quote, error) {
	s.mu.RLock()
	q, ok := s.quotes[currency]
	s.mu.RUnlock()

	if !ok || q.IsZero() {
		return domain.Quote{}, &domain.OracleError{Currency: currency, Err: domain.ErrOracleUnavailable}
	}
	if time.Since(q.UpdatedAt) > s.maxAge {
		return domain.Quote{}, &domain.OracleError{Currency: currency, Err: domain.ErrOracleUnavailable}
	}
	return q, nil
}

// GetAllQuotes returns all known quotes sorted by currency
func (s *QuoteService) GetAllQuotes() []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		result = append(result, q)
	}

	// Sort by currency for consistent ordering
	sort.Slice(result, func(i, j int) bool {
		return result[i].Currency < result[j].Currency
	})

	return result
}

// GetQuoteChan returns the channel for incoming quote updates
func (s *QuoteService) GetQuoteChan() chan []domain.Quote {
	return s.quoteChan
}

// StartQuoteProcessor starts a background goroutine to process quotes from the channel
func (s *QuoteService) StartQuoteProcessor(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case quotes := <-s.quoteChan:
				s.ProcessQuotes(quotes)
			}
		}
	}()
}

// ProcessQuotes handles a slice of quotes and updates the cache.
// It is thread-safe; quotes without a timestamp get the arrival time.
func (s *QuoteService) ProcessQuotes(quotes []domain.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range quotes {
		if q.Currency == "" {
			continue
		}
		if q.UpdatedAt.IsZero() {
			q.UpdatedAt = time.Now()
		}
		s.quotes[q.Currency] = q
	}
}
