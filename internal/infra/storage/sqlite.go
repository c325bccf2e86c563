package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caryxiao/NFT-Auction/internal/domain"
	"github.com/caryxiao/NFT-Auction/internal/event"
)

// AuctionEventRecord is one journaled auction event. The journal is
// append-only; state is reconstructed by replaying events in Seq order.
type AuctionEventRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	AuctionID string    `gorm:"index" json:"auction_id"`
	Seq       uint64    `json:"seq"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"` // full event as JSON
	CreatedAt time.Time `json:"created_at"`
}

// Storage defines the interface for data persistence
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance
func NewStorage() (*Storage, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB path: %w", err)
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.ItemInfo{}, &domain.AppConfig{}, &AuctionEventRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "NFTAuction", "data", "auction.db"), nil
}

// ======================================================================================
// Item Operations
// ======================================================================================

// UpsertItem creates or updates item metadata
func (s *Storage) UpsertItem(item *domain.ItemInfo) error {
	return s.db.Save(item).Error
}

// GetItem retrieves item metadata by collection and token ID
func (s *Storage) GetItem(collection string, tokenID uint64) (*domain.ItemInfo, error) {
	var item domain.ItemInfo
	err := s.db.First(&item, "collection = ? AND token_id = ?", collection, tokenID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &item, err
}

// GetAllItems retrieves all items
func (s *Storage) GetAllItems() ([]domain.ItemInfo, error) {
	var items []domain.ItemInfo
	err := s.db.Find(&items).Error
	return items, err
}

// SetListed marks an item as held (or released) by a live auction
func (s *Storage) SetListed(collection string, tokenID uint64, listed bool) error {
	var item domain.ItemInfo
	if err := s.db.First(&item, "collection = ? AND token_id = ?", collection, tokenID).Error; err != nil {
		return err
	}

	item.Listed = listed
	return s.db.Save(&item).Error
}

// DeleteItem deletes an item from the database
func (s *Storage) DeleteItem(collection string, tokenID uint64) error {
	return s.db.Where("collection = ? AND token_id = ?", collection, tokenID).Delete(&domain.ItemInfo{}).Error
}

// ======================================================================================
// Journal Operations
// ======================================================================================

// Append journals one auction event. The engine treats a failed append as
// fatal, so this must only return an error when the write truly failed.
func (s *Storage) Append(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	record := AuctionEventRecord{
		AuctionID: ev.GetAuctionID(),
		Seq:       ev.GetSeq(),
		Type:      ev.GetType(),
		Payload:   string(payload),
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

// EventsForAuction returns an auction's journal in append order
func (s *Storage) EventsForAuction(auctionID string) ([]AuctionEventRecord, error) {
	var records []AuctionEventRecord
	err := s.db.Where("auction_id = ?", auctionID).Order("id asc").Find(&records).Error
	return records, err
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves an operator configuration
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// LoadConfigMap loads all operator configurations as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}
