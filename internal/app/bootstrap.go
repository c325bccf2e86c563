package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/caryxiao/NFT-Auction/internal/infra"
	"github.com/caryxiao/NFT-Auction/internal/infra/storage"
)

// Bootstrap orchestrates the daemon startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Artwork *infra.ArtworkCache
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (DB, Dir, etc.)
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping NFT Auction...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage()
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Initialize Artwork Cache
	artwork, err := infra.NewArtworkCache(cfg.Artwork.CDNBase)
	if err != nil {
		return err
	}
	b.Artwork = artwork
	slog.Info("✅ Artwork cache ready")

	return nil
}

// SyncArtwork refreshes thumbnails for every known item in the background.
// Artwork is gallery decoration only and never blocks auction operations.
func (b *Bootstrap) SyncArtwork(ctx context.Context) {
	slog.Info("🔄 Starting artwork synchronization...")

	items, err := b.Storage.GetAllItems()
	if err != nil {
		slog.Error("Failed to list items for artwork sync", slog.Any("error", err))
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, item := range items {
		wg.Add(1)
		go func(collection string, tokenID uint64) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			path, err := b.Artwork.DownloadThumbnail(collection, tokenID)
			if err != nil {
				slog.Warn("Failed to download artwork",
					slog.String("collection", collection),
					slog.Uint64("token_id", tokenID),
					slog.Any("error", err))
				return
			}

			// Record the local path so the gallery can render offline
			existing, err := b.Storage.GetItem(collection, tokenID)
			if err != nil || existing == nil {
				return
			}
			existing.ImagePath = path
			existing.LastSyncedAt = time.Now()
			if err := b.Storage.UpsertItem(existing); err != nil {
				slog.Error("Failed to update item artwork path",
					slog.String("collection", collection),
					slog.Uint64("token_id", tokenID),
					slog.Any("error", err))
			}
		}(item.Collection, item.TokenID)
	}

	wg.Wait()
	slog.Info("✨ Artwork synchronization completed")
}
