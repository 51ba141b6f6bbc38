package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/bloomlink/bloomlink-backend/pkg/enums"
)

// Store represents an independent florist registered on the platform.
type Store struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string            `gorm:"column:name;not null"`
	OwnerName *string           `gorm:"column:owner_name"`
	Phone     *string           `gorm:"column:phone"`
	Email     *string           `gorm:"column:email"`
	Status    enums.StoreStatus `gorm:"column:status;type:store_status;not null;default:'pending'"`
	IsOpen    bool              `gorm:"column:is_open;not null;default:false"`

	// PointsBalanceKRW is the prepaid platform-currency balance. It is
	// mutated by settlement and charge flows and must never go negative.
	PointsBalanceKRW int `gorm:"column:points_balance_krw;not null;default:0"`

	// CommissionRate overrides the platform default when set.
	CommissionRate *float64 `gorm:"column:commission_rate"`

	Categories   pq.StringArray     `gorm:"column:categories;type:text[]"`
	ServiceAreas []StoreServiceArea `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`

	ApprovedAt *time.Time `gorm:"column:approved_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// HasCategory reports whether the store declared the given product category.
func (s Store) HasCategory(category enums.ProductCategory) bool {
	for _, declared := range s.Categories {
		if declared == string(category) {
			return true
		}
	}
	return false
}
