package scoring

import (
	"testing"

	"github.com/google/uuid"

	"github.com/bloomlink/bloomlink-backend/pkg/config"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
)

func defaultAssignmentConfig() config.AssignmentConfig {
	return config.AssignmentConfig{
		OrdersSentWeight:       0.4,
		AcceptanceRateWeight:   0.3,
		OnTimeRateWeight:       0.3,
		LowPointsPenalty:       50,
		LowBalanceThresholdKRW: 100000,
		MetricsWindowDays:      90,
	}
}

func perfectMetrics() StoreMetrics {
	return StoreMetrics{TotalOrdersSent: 100, RejectionRate: 0, DeliveryOnTimeRate: 1}
}

func TestScore_LowBalancePenalty(t *testing.T) {
	engine := NewEngine(defaultAssignmentConfig())

	lowBalance := models.Store{ID: uuid.New(), IsOpen: true, PointsBalanceKRW: 50000}
	healthy := models.Store{ID: uuid.New(), IsOpen: true, PointsBalanceKRW: 200000}

	if got := engine.Score(lowBalance, perfectMetrics()); got != 50 {
		t.Fatalf("low balance score = %d, want 50", got)
	}
	if got := engine.Score(healthy, perfectMetrics()); got != 100 {
		t.Fatalf("healthy score = %d, want 100", got)
	}
}

func TestScore_OfflineVetoOverridesEverything(t *testing.T) {
	engine := NewEngine(defaultAssignmentConfig())

	closed := models.Store{ID: uuid.New(), IsOpen: false, PointsBalanceKRW: 1000000}
	metrics := StoreMetrics{TotalOrdersSent: 1000, RejectionRate: 0, DeliveryOnTimeRate: 1}

	if got := engine.Score(closed, metrics); got != 0 {
		t.Fatalf("closed store score = %d, want exactly 0", got)
	}

	// Veto runs after the penalty: a closed store with low balance must not
	// end up at -50.
	closedLowBalance := models.Store{ID: uuid.New(), IsOpen: false, PointsBalanceKRW: 0}
	if got := engine.Score(closedLowBalance, metrics); got != 0 {
		t.Fatalf("closed low-balance store score = %d, want exactly 0", got)
	}
}

func TestScore_VolumeSaturatesAtHundredOrders(t *testing.T) {
	engine := NewEngine(defaultAssignmentConfig())
	store := models.Store{ID: uuid.New(), IsOpen: true, PointsBalanceKRW: 200000}

	atSaturation := engine.Score(store, StoreMetrics{TotalOrdersSent: 100, DeliveryOnTimeRate: 1})
	beyond := engine.Score(store, StoreMetrics{TotalOrdersSent: 5000, DeliveryOnTimeRate: 1})
	if atSaturation != beyond {
		t.Fatalf("score should saturate at 100 orders: %d != %d", atSaturation, beyond)
	}

	half := engine.Score(store, StoreMetrics{TotalOrdersSent: 50, DeliveryOnTimeRate: 1})
	// 0.5*100*0.4 + 100*0.3 + 100*0.3 = 80
	if half != 80 {
		t.Fatalf("score at 50 orders = %d, want 80", half)
	}
}

func TestScore_MissingMetricsTreatedAsZero(t *testing.T) {
	engine := NewEngine(defaultAssignmentConfig())
	store := models.Store{ID: uuid.New(), IsOpen: true, PointsBalanceKRW: 200000}

	// Zero-value metrics: no orders, 0% rejection, 0% on-time.
	// 0*0.4 + 100*0.3 + 0*0.3 = 30
	if got := engine.Score(store, StoreMetrics{}); got != 30 {
		t.Fatalf("new store score = %d, want 30", got)
	}
}

func TestRank_DeterministicWithTieBreaks(t *testing.T) {
	engine := NewEngine(defaultAssignmentConfig())

	idA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	idB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	idC := uuid.MustParse("00000000-0000-0000-0000-00000000000c")

	candidates := []Candidate{
		{
			Store:   models.Store{ID: idC, IsOpen: true, PointsBalanceKRW: 200000},
			Metrics: perfectMetrics(),
		},
		{
			Store:   models.Store{ID: idB, IsOpen: true, PointsBalanceKRW: 200000},
			Metrics: perfectMetrics(),
		},
		{
			Store:   models.Store{ID: idA, IsOpen: true, PointsBalanceKRW: 200000},
			Metrics: StoreMetrics{TotalOrdersSent: 500, RejectionRate: 0, DeliveryOnTimeRate: 1},
		},
	}

	first := engine.Rank(candidates)
	if len(first) != 3 {
		t.Fatalf("expected 3 ranked stores, got %d", len(first))
	}
	// A wins the score tie on order volume; B beats C on id.
	if first[0].StoreID != idA.String() || first[1].StoreID != idB.String() || first[2].StoreID != idC.String() {
		t.Fatalf("unexpected ranking: %v", first)
	}

	for i := 0; i < 10; i++ {
		again := engine.Rank(candidates)
		for j := range first {
			if again[j].StoreID != first[j].StoreID || again[j].Score != first[j].Score {
				t.Fatalf("ranking not deterministic on run %d: %v vs %v", i, again, first)
			}
		}
	}
}

func TestRank_PenalizedStoreRanksBelowHealthy(t *testing.T) {
	engine := NewEngine(defaultAssignmentConfig())

	storeA := models.Store{ID: uuid.New(), IsOpen: true, PointsBalanceKRW: 50000}
	storeB := models.Store{ID: uuid.New(), IsOpen: true, PointsBalanceKRW: 200000}

	ranked := engine.Rank([]Candidate{
		{Store: storeA, Metrics: perfectMetrics()},
		{Store: storeB, Metrics: perfectMetrics()},
	})

	if ranked[0].StoreID != storeB.ID.String() {
		t.Fatalf("expected healthy store first, got %v", ranked)
	}
	if ranked[0].Score != 100 || ranked[1].Score != 50 {
		t.Fatalf("unexpected scores: %v", ranked)
	}
}
