package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
)

// feedResponse represents the reference feed API response
type feedResponse struct {
	Currency  string  `json:"currency"`
	Answer    string  `json:"answer"`
	Decimals  int32   `json:"decimals"`
	Price     float64 `json:"price"` // fallback when answer is absent
	Timestamp int64   `json:"timestamp"`
}

// PollingFeed fetches a currency's price reference from an HTTP endpoint
// on an interval and serves the last good quote.
type PollingFeed struct {
	currency     domain.Currency
	onUpdate     func(domain.Quote)
	quote        domain.Quote
	mu           sync.RWMutex
	pollInterval time.Duration
	maxAge       time.Duration
	apiURL       string
	httpClient   *http.Client
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewPollingFeed creates a polling feed for one currency
func NewPollingFeed(currency domain.Currency, apiURL string, onUpdate func(domain.Quote)) *PollingFeed {
	return &PollingFeed{
		currency:     currency,
		onUpdate:     onUpdate,
		pollInterval: 60 * time.Second, // Default: 1 minute
		maxAge:       5 * time.Minute,
		apiURL:       apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewPollingFeedWithConfig creates a feed with custom polling configuration
func NewPollingFeedWithConfig(currency domain.Currency, apiURL string, pollIntervalSec int, onUpdate func(domain.Quote)) *PollingFeed {
	feed := NewPollingFeed(currency, apiURL, onUpdate)
	if pollIntervalSec > 0 {
		feed.pollInterval = time.Duration(pollIntervalSec) * time.Second
		feed.maxAge = 5 * feed.pollInterval
	}
	return feed
}

// Start begins polling for quote updates
func (f *PollingFeed) Start(ctx context.Context) error {
	// Create a cancellable context
	ctx, f.cancel = context.WithCancel(ctx)

	// Fetch immediately on start
	if err := f.fetchQuote(ctx); err != nil {
		slog.Warn("Initial quote fetch failed",
			slog.String("currency", f.currency.String()), slog.Any("error", err))
		// Continue anyway - will retry on next tick
	}

	// Start polling goroutine
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Quote polling panic recovered", slog.Any("panic", r))
			}
		}()

		ticker := time.NewTicker(f.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Quote polling stopped", slog.String("currency", f.currency.String()))
				return
			case <-ticker.C:
				if err := f.fetchQuote(ctx); err != nil {
					slog.Warn("Quote fetch failed",
						slog.String("currency", f.currency.String()), slog.Any("error", err))
				}
			}
		}
	}()

	return nil
}

// fetchQuote fetches the current quote with retry logic
func (f *PollingFeed) fetchQuote(ctx context.Context) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			// Exponential backoff: 1s, 2s, 4s
			delay := time.Duration(1<<uint(i-1)) * time.Second
			slog.Info("Retrying quote fetch", slog.Int("attempt", i), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := f.doFetch(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		slog.Warn("Quote fetch attempt failed", slog.Int("attempt", i+1), slog.Any("error", err))
	}
	return lastErr
}

func (f *PollingFeed) doFetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiURL, nil)
	if err != nil {
		return err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return domain.NewNetworkError("fetch quote", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var data feedResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return err
	}

	answer, err := parseAnswer(data)
	if err != nil {
		return err
	}

	newQuote := domain.Quote{
		Currency:  f.currency,
		Answer:    answer,
		Decimals:  data.Decimals,
		UpdatedAt: time.Now(),
	}

	f.mu.Lock()
	oldQuote := f.quote
	f.quote = newQuote
	f.mu.Unlock()

	// Notify if answer changed
	if !oldQuote.Answer.Equal(newQuote.Answer) && f.onUpdate != nil {
		slog.Info("Quote updated",
			slog.String("currency", f.currency.String()),
			slog.String("answer", newQuote.Answer.String()),
			slog.String("old_answer", oldQuote.Answer.String()),
		)
		f.onUpdate(newQuote)
	}

	return nil
}

func parseAnswer(data feedResponse) (decimal.Decimal, error) {
	if data.Answer != "" {
		return decimal.NewFromString(data.Answer)
	}
	if data.Price > 0 {
		// Scale a plain price into the aggregator answer convention.
		return decimal.NewFromFloat(data.Price).Shift(data.Decimals), nil
	}
	return decimal.Zero, fmt.Errorf("empty answer in feed response")
}

// Stop stops the polling
func (f *PollingFeed) Stop() {
	if f.cancel != nil {
		f.cancel()
		f.wg.Wait()
	}
}

// Quote implements domain.PriceOracle using the last fetched quote.
func (f *PollingFeed) Quote(ctx context.Context, currency domain.Currency) (domain.Quote, error) {
	f.mu.RLock()
	q := f.quote
	f.mu.RUnlock()

	if q.IsZero() || time.Since(q.UpdatedAt) > f.maxAge {
		return domain.Quote{}, &domain.OracleError{Currency: currency, Err: domain.ErrOracleUnavailable}
	}
	q.Currency = currency
	return q, nil
}
