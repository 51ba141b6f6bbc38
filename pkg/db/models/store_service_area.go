package models

import (
	"time"

	"github.com/google/uuid"
)

// StoreServiceArea is one administrative area a store covers, with the
// minimum product price the store accepts for deliveries into that area.
type StoreServiceArea struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID  uuid.UUID `gorm:"column:store_id;type:uuid;not null;index"`
	Province string    `gorm:"column:province;not null"`
	City     string    `gorm:"column:city;not null"`
	District *string   `gorm:"column:district"`

	// CanonicalKey is the normalized area string used for variant matching.
	CanonicalKey string `gorm:"column:canonical_key;not null;index"`

	MinPriceKRW int `gorm:"column:min_price_krw;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
