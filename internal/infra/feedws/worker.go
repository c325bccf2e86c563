package feedws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
	"github.com/caryxiao/NFT-Auction/internal/infra"
)

const (
	maxRetries   = 10
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// roundResponse represents one aggregator round pushed by the feed.
type roundResponse struct {
	Type string `json:"type"` // round

	Currency  string `json:"currency"`
	Answer    string `json:"answer"`
	Decimals  int32  `json:"decimals"`
	UpdatedAt int64  `json:"updated_at"` // unix ms
}

// Worker keeps one WebSocket connection to a price feed and streams
// aggregator rounds into the quote channel.
type Worker struct {
	url        string
	apiKey     string
	currencies []domain.Currency
	quotes     chan<- []domain.Quote
	conn       *websocket.Conn
	mu         sync.RWMutex
	writeMu    sync.Mutex
	connected  bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewWorker creates a feed worker for the given currencies
func NewWorker(url, apiKey string, currencies []domain.Currency, quotes chan<- []domain.Quote) *Worker {
	return &Worker{
		url:        url,
		apiKey:     apiKey,
		currencies: currencies,
		quotes:     quotes,
	}
}

// Connect starts the WebSocket connection
func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("Feed connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	if w.apiKey != "" {
		header.Add("Authorization", "Bearer "+w.apiKey)
	}

	conn, _, err := dialer.DialContext(ctx, w.url, header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return err
	}

	infra.GlobalMetrics.IncrementFeeds()
	slog.Info("Feed connected", slog.String("url", w.url), slog.Int("subs", len(w.currencies)))
	return nil
}

func (w *Worker) subscribe() error {
	codes := make([]string, len(w.currencies))
	for i, c := range w.currencies {
		codes[i] = string(c)
	}

	msg := map[string]interface{}{
		"op":         "subscribe",
		"channel":    "round",
		"currencies": codes,
	}
	b, _ := json.Marshal(msg)
	return w.threadSafeWrite(websocket.TextMessage, b)
}

func (w *Worker) threadSafeWrite(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return fmt.Errorf("no conn")
	}
	return w.conn.WriteMessage(msgType, data)
}

func (w *Worker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		if w.conn == nil {
			w.mu.RUnlock()
			return
		}
		w.conn.SetReadDeadline(time.Now().Add(readTimeout))
		w.mu.RUnlock()

		_, msg, err := w.conn.ReadMessage()
		if err != nil {
			w.closeConnection()
			return
		}
		w.handleMessage(msg)
	}
}

func (w *Worker) handleMessage(msg []byte) {
	var resp roundResponse
	if json.Unmarshal(msg, &resp) != nil || resp.Type != "round" {
		return
	}

	answer, err := decimal.NewFromString(resp.Answer)
	if err != nil {
		slog.Warn("Feed round with bad answer", slog.String("currency", resp.Currency), slog.String("answer", resp.Answer))
		return
	}

	q := domain.Quote{
		Currency:  domain.Currency(resp.Currency),
		Answer:    answer,
		Decimals:  resp.Decimals,
		UpdatedAt: time.UnixMilli(resp.UpdatedAt),
	}

	select {
	case w.quotes <- []domain.Quote{q}:
	default: // DROP
	}
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	if w.connected {
		w.connected = false
		infra.GlobalMetrics.DecrementFeeds()
	}
}

// Disconnect stops the worker and waits for goroutines to finish
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}

// IsConnected reports whether the socket is currently up.
func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}
