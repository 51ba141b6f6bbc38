package commission

import (
	"github.com/shopspring/decimal"

	"github.com/bloomlink/bloomlink-backend/pkg/config"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
)

// Split is the commission breakdown for a single order. The split is exact:
// CommissionKRW + NetKRW always equals the order's base amount.
type Split struct {
	CommissionKRW int
	NetKRW        int
	Rate          float64
}

// Calculator computes the platform commission for fulfilled orders. It never
// fails: a missing or out-of-range stored rate falls back to the platform
// default so commission math can never block order completion.
type Calculator struct {
	cfg config.CommissionConfig

	// tiers are pre-sorted by MinOrders descending. Evaluation is first
	// match wins, never cumulative across tiers.
	tiers []config.VolumeDiscountTier
}

// NewCalculator builds a commission calculator from validated config.
func NewCalculator(cfg config.CommissionConfig) *Calculator {
	return &Calculator{cfg: cfg, tiers: cfg.Tiers()}
}

// Compute returns the commission split for one order fulfilled by store.
// trailingMonthOrders is the store's order count over the trailing month,
// used only when the volume discount feature is enabled.
//
// The base amount is subtotal plus additional fee; commission is never
// charged on itself. The commission is floor(base * rate) computed in
// decimal arithmetic so the result is bit-for-bit reproducible.
func (c *Calculator) Compute(order models.Order, store models.Store, trailingMonthOrders int) Split {
	rate := c.effectiveRate(store, trailingMonthOrders)

	base := order.SubtotalKRW + order.AdditionalFeeKRW
	commission := int(decimal.NewFromInt(int64(base)).
		Mul(decimal.NewFromFloat(rate)).
		Floor().
		IntPart())

	return Split{
		CommissionKRW: commission,
		NetKRW:        base - commission,
		Rate:          rate,
	}
}

func (c *Calculator) effectiveRate(store models.Store, trailingMonthOrders int) float64 {
	rate := c.cfg.PlatformRate
	if store.CommissionRate != nil && *store.CommissionRate >= 0 && *store.CommissionRate <= 1 {
		rate = *store.CommissionRate
	}

	if !c.cfg.VolumeDiscountEnabled {
		return rate
	}
	for _, tier := range c.tiers {
		if trailingMonthOrders >= tier.MinOrders {
			return rate * (1 - tier.Discount)
		}
	}
	return rate
}
