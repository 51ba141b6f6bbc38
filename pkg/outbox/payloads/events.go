package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderAssignedEvent is emitted when an order is routed to a receiver store.
type OrderAssignedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	ReceiverStoreID uuid.UUID `json:"receiver_store_id"`
	Score           int       `json:"score"`
	AssignedAt      time.Time `json:"assigned_at"`
}

// SettlementBatchCreatedEvent is emitted when a weekly pass groups a store's
// completed orders into a batch.
type SettlementBatchCreatedEvent struct {
	SettlementID        uuid.UUID `json:"settlement_id"`
	StoreID             uuid.UUID `json:"store_id"`
	PeriodStart         time.Time `json:"period_start"`
	PeriodEnd           time.Time `json:"period_end"`
	OrderCount          int       `json:"order_count"`
	TotalAmountKRW      int       `json:"total_amount_krw"`
	CommissionAmountKRW int       `json:"commission_amount_krw"`
	NetAmountKRW        int       `json:"net_amount_krw"`
	Submitted           bool      `json:"submitted"`
}

// SettlementBatchPaidEvent is emitted when an operator confirms the payout.
type SettlementBatchPaidEvent struct {
	SettlementID uuid.UUID `json:"settlement_id"`
	StoreID      uuid.UUID `json:"store_id"`
	NetAmountKRW int       `json:"net_amount_krw"`
	PaidAt       time.Time `json:"paid_at"`
}
