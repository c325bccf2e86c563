package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caryxiao/NFT-Auction/internal/app"
	"github.com/caryxiao/NFT-Auction/internal/domain"
	"github.com/caryxiao/NFT-Auction/internal/engine"
	"github.com/caryxiao/NFT-Auction/internal/event"
	"github.com/caryxiao/NFT-Auction/internal/infra"
	"github.com/caryxiao/NFT-Auction/internal/infra/feedws"
	"github.com/caryxiao/NFT-Auction/internal/oracle"
	"github.com/caryxiao/NFT-Auction/internal/service"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Background Artwork Sync
	go bootstrap.SyncArtwork(ctx)

	// 5. Quote Service (price reference cache for every accepted currency)
	quotes := service.NewQuoteService(time.Duration(cfg.House.QuoteMaxAgeSec) * time.Second)
	quotes.StartQuoteProcessor(ctx)

	startFeed(ctx, domain.Native, cfg.Feeds.Native, cfg.Feeds.APIKey, quotes)
	for symbol, feed := range cfg.Feeds.Tokens {
		startFeed(ctx, domain.Currency(symbol), feed, cfg.Feeds.APIKey, quotes)
	}

	// 6. Auction House
	event.Warmup() // pre-allocate pooled bid events

	logic := engine.Logic(engine.LogicV1{})
	if cfg.House.ExtendWindowSec > 0 {
		logic = engine.LogicV2{ExtendWindow: time.Duration(cfg.House.ExtendWindowSec) * time.Second}
	}

	house := engine.NewHouse(engine.HouseConfig{
		NativeFeed: quotes,
		Vault:      infra.NewInMemoryVault(),
		Custody:    infra.NewInMemoryCustody(),
		Journal:    bootstrap.Storage,
		Logic:      logic,
	})

	slog.InfoContext(ctx, "✨ Auction house operational. Press Ctrl+C to exit.",
		slog.String("version", house.Version()))

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}

// startFeed wires one currency's price reference source into the quote
// service, preferring the streaming feed when both are configured.
func startFeed(ctx context.Context, currency domain.Currency, feed infra.FeedConfig, apiKey string, quotes *service.QuoteService) {
	if feed.WSURL != "" {
		worker := feedws.NewWorker(feed.WSURL, apiKey, []domain.Currency{currency}, quotes.GetQuoteChan())
		if err := worker.Connect(ctx); err != nil {
			slog.Error("Failed to start feed worker",
				slog.String("currency", currency.String()), slog.Any("error", err))
		}
		return
	}

	poller := oracle.NewPollingFeedWithConfig(currency, feed.PollURL, feed.PollIntervalSec, func(q domain.Quote) {
		select {
		case quotes.GetQuoteChan() <- []domain.Quote{q}:
		default: // DROP
		}
	})
	if err := poller.Start(ctx); err != nil {
		slog.Error("Failed to start polling feed",
			slog.String("currency", currency.String()), slog.Any("error", err))
	}
}
