package enums

import "fmt"

// OutboxEventType maps to the event_type_enum enum in Postgres.
type OutboxEventType string

const (
	EventOrderAssigned          OutboxEventType = "order.assigned"
	EventSettlementBatchCreated OutboxEventType = "settlement.batch_created"
	EventSettlementBatchPaid    OutboxEventType = "settlement.batch_paid"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderAssigned,
	EventSettlementBatchCreated,
	EventSettlementBatchPaid,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType maps to the aggregate_type_enum enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder           OutboxAggregateType = "order"
	AggregateSettlementBatch OutboxAggregateType = "settlement_batch"
)

// IsValid reports whether the value is a known OutboxAggregateType.
func (t OutboxAggregateType) IsValid() bool {
	return t == AggregateOrder || t == AggregateSettlementBatch
}
