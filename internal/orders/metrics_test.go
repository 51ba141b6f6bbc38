package orders

import (
	"testing"
	"time"

	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
)

func orderWithStatus(status enums.OrderStatus) models.Order {
	return models.Order{Status: status}
}

func completedOrder(deliverBy, deliveredAt time.Time) models.Order {
	return models.Order{
		Status:      enums.OrderStatusCompleted,
		DeliverBy:   &deliverBy,
		DeliveredAt: &deliveredAt,
	}
}

func TestComputeStoreMetrics_EmptyHistory(t *testing.T) {
	m := ComputeStoreMetrics(nil)
	if m.TotalOrdersSent != 0 || m.RejectionRate != 0 || m.DeliveryOnTimeRate != 0 {
		t.Fatalf("expected zero metrics for empty history, got %+v", m)
	}
}

func TestComputeStoreMetrics_Rates(t *testing.T) {
	deadline := time.Date(2025, 8, 20, 18, 0, 0, 0, time.UTC)

	history := []models.Order{
		completedOrder(deadline, deadline.Add(-time.Hour)),
		completedOrder(deadline, deadline.Add(30*time.Minute)),
		orderWithStatus(enums.OrderStatusRejected),
		orderWithStatus(enums.OrderStatusCancelled),
	}

	m := ComputeStoreMetrics(history)
	if m.TotalOrdersSent != 4 {
		t.Fatalf("TotalOrdersSent = %d, want 4", m.TotalOrdersSent)
	}
	if m.RejectionRate != 0.25 {
		t.Fatalf("RejectionRate = %g, want 0.25", m.RejectionRate)
	}
	if m.DeliveryOnTimeRate != 0.5 {
		t.Fatalf("DeliveryOnTimeRate = %g, want 0.5", m.DeliveryOnTimeRate)
	}
}

func TestComputeStoreMetrics_NoCompletedOrders(t *testing.T) {
	history := []models.Order{
		orderWithStatus(enums.OrderStatusRejected),
		orderWithStatus(enums.OrderStatusPending),
	}

	m := ComputeStoreMetrics(history)
	if m.DeliveryOnTimeRate != 0 {
		t.Fatalf("DeliveryOnTimeRate = %g, want 0 when nothing completed", m.DeliveryOnTimeRate)
	}
	if m.RejectionRate != 0.5 {
		t.Fatalf("RejectionRate = %g, want 0.5", m.RejectionRate)
	}
}

func TestComputeStoreMetrics_MissingWindowCountsOnTime(t *testing.T) {
	delivered := time.Date(2025, 8, 20, 18, 0, 0, 0, time.UTC)
	order := models.Order{Status: enums.OrderStatusCompleted, DeliveredAt: &delivered}

	m := ComputeStoreMetrics([]models.Order{order})
	if m.DeliveryOnTimeRate != 1 {
		t.Fatalf("DeliveryOnTimeRate = %g, want 1 for orders without a window", m.DeliveryOnTimeRate)
	}
}
