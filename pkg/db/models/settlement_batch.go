package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloomlink/bloomlink-backend/pkg/enums"
)

// SettlementBatch groups one store's completed, unsettled orders for one
// settlement period. Membership lives on Order.SettlementID; the batch keeps
// the aggregate amounts. Uniqueness on (store_id, period_start, period_end)
// is how a double-fired settlement run detects it already happened.
type SettlementBatch struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID uuid.UUID `gorm:"column:store_id;type:uuid;not null;index;uniqueIndex:ux_settlement_batches_store_period,priority:1"`

	PeriodStart time.Time `gorm:"column:period_start;not null;uniqueIndex:ux_settlement_batches_store_period,priority:2"`
	PeriodEnd   time.Time `gorm:"column:period_end;not null;uniqueIndex:ux_settlement_batches_store_period,priority:3"`

	OrderCount          int `gorm:"column:order_count;not null;default:0"`
	TotalAmountKRW      int `gorm:"column:total_amount_krw;not null;default:0"`
	CommissionAmountKRW int `gorm:"column:commission_amount_krw;not null;default:0"`
	NetAmountKRW        int `gorm:"column:net_amount_krw;not null;default:0"`

	Status enums.SettlementStatus `gorm:"column:status;type:settlement_status;not null;default:'pending'"`

	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
}
