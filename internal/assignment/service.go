package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bloomlink/bloomlink-backend/internal/area"
	"github.com/bloomlink/bloomlink-backend/internal/eligibility"
	"github.com/bloomlink/bloomlink-backend/internal/orders"
	"github.com/bloomlink/bloomlink-backend/internal/scoring"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	pkgerrors "github.com/bloomlink/bloomlink-backend/pkg/errors"
	"github.com/bloomlink/bloomlink-backend/pkg/logger"
)

type storeLister interface {
	ListActive(ctx context.Context) ([]models.Store, error)
}

type orderOps interface {
	Assign(ctx context.Context, input orders.AssignInput) error
	MetricsForStore(ctx context.Context, storeID uuid.UUID, now time.Time) (scoring.StoreMetrics, error)
}

// Suggestion is the ranked outcome of one assignment pass.
type Suggestion struct {
	Ranked   []scoring.RankedStore
	Degraded bool
}

// Service turns an unassigned order into a ranked store list and claims the
// top pick.
type Service struct {
	stores     storeLister
	orders     orderOps
	resolver   *eligibility.Resolver
	engine     *scoring.Engine
	normalizer *area.Normalizer
	logg       *logger.Logger
}

// NewService builds an assignment service.
func NewService(stores storeLister, orderOps orderOps, resolver *eligibility.Resolver, engine *scoring.Engine, normalizer *area.Normalizer, logg *logger.Logger) (*Service, error) {
	if stores == nil {
		return nil, fmt.Errorf("store lister required")
	}
	if orderOps == nil {
		return nil, fmt.Errorf("order operations required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("eligibility resolver required")
	}
	if engine == nil {
		return nil, fmt.Errorf("scoring engine required")
	}
	if normalizer == nil {
		return nil, fmt.Errorf("area normalizer required")
	}
	return &Service{
		stores:     stores,
		orders:     orderOps,
		resolver:   resolver,
		engine:     engine,
		normalizer: normalizer,
		logg:       logg,
	}, nil
}

// Rank resolves eligibility for the order and scores every candidate. The
// returned list is complete and ordered; callers pick from the top.
func (s *Service) Rank(ctx context.Context, order models.Order, indexUnavailable bool) (*Suggestion, error) {
	candidates, err := s.stores.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing candidate stores")
	}

	result, err := s.resolver.FindEligibleStores(ctx, eligibility.Query{
		Area: s.normalizer.Normalize(area.Area{
			Province: order.Province,
			City:     order.City,
			District: derefString(order.District),
		}),
		Category:         order.Category,
		PriceKRW:         order.PriceKRW,
		Stores:           candidates,
		IndexUnavailable: indexUnavailable,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	scored := make([]scoring.Candidate, 0, len(result.Stores))
	for _, store := range result.Stores {
		m, err := s.orders.MetricsForStore(ctx, store.ID, now)
		if err != nil {
			return nil, err
		}
		scored = append(scored, scoring.Candidate{Store: store, Metrics: m})
	}

	return &Suggestion{
		Ranked:   s.engine.Rank(scored),
		Degraded: result.Degraded,
	}, nil
}

// AssignBest ranks the candidates and claims the order for the first store
// with a positive score. A zero score means every candidate was vetoed.
func (s *Service) AssignBest(ctx context.Context, order models.Order, indexUnavailable bool) (*scoring.RankedStore, error) {
	suggestion, err := s.Rank(ctx, order, indexUnavailable)
	if err != nil {
		return nil, err
	}
	if len(suggestion.Ranked) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no eligible stores for order")
	}

	top := suggestion.Ranked[0]
	if top.Score <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "all eligible stores are vetoed")
	}

	storeID, err := uuid.Parse(top.StoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parsing store id")
	}
	err = s.orders.Assign(ctx, orders.AssignInput{
		OrderID: order.ID,
		StoreID: storeID,
		Score:   top.Score,
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"store_id": top.StoreID,
			"score":    top.Score,
			"degraded": suggestion.Degraded,
		})
		s.logg.Info(logCtx, "order assigned")
	}
	return &top, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
