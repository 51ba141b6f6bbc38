package orders

import (
	"github.com/bloomlink/bloomlink-backend/internal/scoring"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
)

// ComputeStoreMetrics derives the scoring inputs from a store's orders inside
// the metrics window. Stores with no history get the zero value, which ranks
// them at the bottom until they build a record.
func ComputeStoreMetrics(windowOrders []models.Order) scoring.StoreMetrics {
	var m scoring.StoreMetrics
	if len(windowOrders) == 0 {
		return m
	}

	var rejected, completed, onTime int
	for _, order := range windowOrders {
		m.TotalOrdersSent++
		switch order.Status {
		case enums.OrderStatusRejected:
			rejected++
		case enums.OrderStatusCompleted:
			completed++
			if order.DeliveredOnTime() {
				onTime++
			}
		}
	}

	m.RejectionRate = float64(rejected) / float64(m.TotalOrdersSent)
	if completed > 0 {
		m.DeliveryOnTimeRate = float64(onTime) / float64(completed)
	}
	return m
}
