package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloomlink/bloomlink-backend/pkg/enums"
)

// Order is a single delivery request placed by a customer. The delivery area
// is stored as entered; normalization happens at matching time so the raw
// record keeps whatever formatting the ordering collaborator sent.
type Order struct {
	ID uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`

	Province string  `gorm:"column:province;not null"`
	City     string  `gorm:"column:city"`
	District *string `gorm:"column:district"`

	Category enums.ProductCategory `gorm:"column:category;type:product_category;not null"`
	PriceKRW int                   `gorm:"column:price_krw;not null"`

	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	ReceiverStoreID *uuid.UUID        `gorm:"column:receiver_store_id;type:uuid;index"`

	SubtotalKRW      int `gorm:"column:subtotal_krw;not null;default:0"`
	AdditionalFeeKRW int `gorm:"column:additional_fee_krw;not null;default:0"`
	CommissionKRW    int `gorm:"column:commission_krw;not null;default:0"`
	TotalKRW         int `gorm:"column:total_krw;not null;default:0"`

	SettlementID *uuid.UUID `gorm:"column:settlement_id;type:uuid;index"`

	DeliverBy   *time.Time `gorm:"column:deliver_by"`
	AcceptedAt  *time.Time `gorm:"column:accepted_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// DeliveredOnTime reports whether the order completed within its promised
// delivery window. Orders without a window count as on time.
func (o Order) DeliveredOnTime() bool {
	if o.DeliverBy == nil || o.DeliveredAt == nil {
		return true
	}
	return !o.DeliveredAt.After(*o.DeliverBy)
}
