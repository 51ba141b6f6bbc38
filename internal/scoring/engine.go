package scoring

import (
	"math"
	"sort"

	"github.com/bloomlink/bloomlink-backend/pkg/config"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
)

// orderVolumeSaturation is the order count at which the volume component of
// the score saturates.
const orderVolumeSaturation = 100

// StoreMetrics is the per-store performance snapshot a scoring pass runs on.
// It is recomputed from order history for every assignment request and never
// cached beyond a single pass. A store with no history scores as all zeros.
type StoreMetrics struct {
	TotalOrdersSent    int
	RejectionRate      float64
	DeliveryOnTimeRate float64
}

// Candidate pairs a store with its metrics for one scoring pass.
type Candidate struct {
	Store   models.Store
	Metrics StoreMetrics
}

// RankedStore is one entry of the ranked assignment suggestion.
type RankedStore struct {
	StoreID string
	Score   int

	ordersSent int
}

// adjustment is one named post-scoring step. Steps run in registration
// order; inverting penalty and veto changes the outcome, so the pipeline is
// explicit rather than inline conditionals.
type adjustment struct {
	name  string
	apply func(store models.Store, raw float64, cfg config.AssignmentConfig) float64
}

var adjustments = []adjustment{
	{name: "low-balance-penalty", apply: lowBalancePenalty},
	{name: "offline-veto", apply: offlineVeto},
}

// lowBalancePenalty docks stores whose prepaid balance dropped under the
// configured threshold.
func lowBalancePenalty(store models.Store, raw float64, cfg config.AssignmentConfig) float64 {
	if store.PointsBalanceKRW < cfg.LowBalanceThresholdKRW {
		return raw - cfg.LowPointsPenalty
	}
	return raw
}

// offlineVeto forces closed stores to exactly zero, overriding any penalty
// or history. Closed stores are never assignable.
func offlineVeto(store models.Store, raw float64, _ config.AssignmentConfig) float64 {
	if !store.IsOpen {
		return 0
	}
	return raw
}

// Engine ranks candidate stores by a weighted quality score. It is pure and
// synchronous; all inputs arrive already materialized.
type Engine struct {
	cfg config.AssignmentConfig
}

// NewEngine builds a scoring engine. The config is validated at load time;
// the engine trusts the weights sum to 1.
func NewEngine(cfg config.AssignmentConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Score computes the final integer score for one store.
func (e *Engine) Score(store models.Store, m StoreMetrics) int {
	orderScore := math.Min(float64(m.TotalOrdersSent)/orderVolumeSaturation, 1) * 100
	acceptanceScore := (1 - m.RejectionRate) * 100
	onTimeScore := m.DeliveryOnTimeRate * 100

	raw := orderScore*e.cfg.OrdersSentWeight +
		acceptanceScore*e.cfg.AcceptanceRateWeight +
		onTimeScore*e.cfg.OnTimeRateWeight

	for _, adj := range adjustments {
		raw = adj.apply(store, raw, e.cfg)
	}

	return int(math.Round(raw))
}

// Rank scores every candidate and orders them for assignment: score
// descending, then total orders sent descending, then store id ascending.
// The ordering is fully deterministic for identical inputs.
func (e *Engine) Rank(candidates []Candidate) []RankedStore {
	ranked := make([]RankedStore, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, RankedStore{
			StoreID:    c.Store.ID.String(),
			Score:      e.Score(c.Store, c.Metrics),
			ordersSent: c.Metrics.TotalOrdersSent,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].ordersSent != ranked[j].ordersSent {
			return ranked[i].ordersSent > ranked[j].ordersSent
		}
		return ranked[i].StoreID < ranked[j].StoreID
	})
	return ranked
}
