package domain

import (
	"time"
)

// ItemInfo represents metadata for a listed non-fungible item
type ItemInfo struct {
	Collection   string    `gorm:"primaryKey" json:"collection"`
	TokenID      uint64    `gorm:"primaryKey" json:"token_id"`
	Name         string    `json:"name"`
	ImagePath    string    `json:"image_path"`
	Listed       bool      `json:"listed" gorm:"index"` // Currently held by a live auction
	LastSyncedAt time.Time `json:"last_synced_at"`      // Last artwork sync time
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AppConfig represents operator-specific configuration (Key-Value)
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
