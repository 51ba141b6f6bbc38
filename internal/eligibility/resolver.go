package eligibility

import (
	"context"
	"fmt"

	"github.com/bloomlink/bloomlink-backend/internal/area"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
	pkgerrors "github.com/bloomlink/bloomlink-backend/pkg/errors"
	"github.com/bloomlink/bloomlink-backend/pkg/logger"
	"github.com/bloomlink/bloomlink-backend/pkg/metrics"
)

// Query describes one eligibility lookup over already-materialized stores.
type Query struct {
	Area     area.Area
	Category enums.ProductCategory
	PriceKRW int

	// Stores must have ServiceAreas preloaded by the data-access collaborator.
	Stores []models.Store

	// IndexUnavailable is set by the caller when the area/pricing index
	// dependency is down, forcing the coarse fallback pass.
	IndexUnavailable bool
}

// Result carries the candidates plus an explicit degraded-matching flag so
// operators can tell a fallback pass from a normal one.
type Result struct {
	Stores   []models.Store
	Degraded bool
}

// Resolver finds the stores permitted to serve an order. It is read-only and
// does not rank; ordering is the scoring engine's concern.
type Resolver struct {
	normalizer *area.Normalizer
	logg       *logger.Logger
	metrics    *metrics.EligibilityMetrics
}

// NewResolver builds an eligibility resolver.
func NewResolver(normalizer *area.Normalizer, logg *logger.Logger, m *metrics.EligibilityMetrics) (*Resolver, error) {
	if normalizer == nil {
		return nil, fmt.Errorf("area normalizer required")
	}
	return &Resolver{normalizer: normalizer, logg: logg, metrics: m}, nil
}

// FindEligibleStores returns every store whose declared coverage, price
// floor, and category satisfy the query. A query with no resolvable area is
// a caller bug and fails with MISSING_AREA; an empty candidate list is not.
func (r *Resolver) FindEligibleStores(ctx context.Context, q Query) (*Result, error) {
	if q.Area.Province == "" && q.Area.City == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingArea, "order has no resolvable delivery area")
	}

	if q.IndexUnavailable {
		return r.resolveDegraded(ctx, q), nil
	}

	variants := r.normalizer.VariantsOf(q.Area)
	result := &Result{}
	for _, store := range q.Stores {
		if sa, ok := r.matchServiceArea(store, variants); ok && r.satisfiesConstraints(store, sa, q) {
			result.Stores = append(result.Stores, store)
		}
	}
	return result, nil
}

func (r *Resolver) matchServiceArea(store models.Store, variants map[string]struct{}) (*models.StoreServiceArea, bool) {
	for i := range store.ServiceAreas {
		sa := &store.ServiceAreas[i]
		if _, ok := variants[sa.CanonicalKey]; ok {
			return sa, true
		}
		for variant := range variants {
			if r.normalizer.Match(variant, sa.CanonicalKey) {
				return sa, true
			}
		}
	}
	return nil, false
}

func (r *Resolver) satisfiesConstraints(store models.Store, sa *models.StoreServiceArea, q Query) bool {
	if sa.MinPriceKRW > q.PriceKRW {
		return false
	}
	return store.HasCategory(q.Category)
}

// resolveDegraded is the coarse pass used while the area index is down:
// raw province/city equality only, no variant expansion.
func (r *Resolver) resolveDegraded(ctx context.Context, q Query) *Result {
	result := &Result{Degraded: true}
	for _, store := range q.Stores {
		for i := range store.ServiceAreas {
			sa := &store.ServiceAreas[i]
			if sa.Province != q.Area.Province {
				continue
			}
			if q.Area.City != "" && sa.City != q.Area.City {
				continue
			}
			if r.satisfiesConstraints(store, sa, q) {
				result.Stores = append(result.Stores, store)
			}
			break
		}
	}

	if r.logg != nil {
		warnCtx := r.logg.WithFields(ctx, map[string]any{
			"province": q.Area.Province,
			"city":     q.Area.City,
		})
		r.logg.Warn(warnCtx, "area index unavailable, degraded eligibility matching engaged")
	}
	if r.metrics != nil {
		r.metrics.IncDegraded()
	}
	return result
}
