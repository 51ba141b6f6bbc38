package eligibility

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/bloomlink/bloomlink-backend/internal/area"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
	pkgerrors "github.com/bloomlink/bloomlink-backend/pkg/errors"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(area.NewNormalizer(), nil, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func testStore(name string, categories []string, areas ...models.StoreServiceArea) models.Store {
	return models.Store{
		ID:           uuid.New(),
		Name:         name,
		Status:       enums.StoreStatusActive,
		Categories:   pq.StringArray(categories),
		ServiceAreas: areas,
	}
}

func serviceArea(province, city string, minPrice int) models.StoreServiceArea {
	n := area.NewNormalizer()
	a := n.Normalize(area.Area{Province: province, City: city})
	return models.StoreServiceArea{
		ID:           uuid.New(),
		Province:     a.Province,
		City:         a.City,
		CanonicalKey: n.CanonicalKey(a),
		MinPriceKRW:  minPrice,
	}
}

func TestFindEligibleStores_MatchesAreaCategoryAndPrice(t *testing.T) {
	r := newTestResolver(t)

	gangnam := testStore("강남꽃집",
		[]string{string(enums.ProductCategoryCondolenceWreath)},
		serviceArea("서울특별시", "강남구", 50000),
	)
	haeundae := testStore("해운대꽃집",
		[]string{string(enums.ProductCategoryCondolenceWreath)},
		serviceArea("부산광역시", "해운대구", 50000),
	)

	res, err := r.FindEligibleStores(context.Background(), Query{
		Area:     area.Area{Province: "서울", City: "강남"},
		Category: enums.ProductCategoryCondolenceWreath,
		PriceKRW: 60000,
		Stores:   []models.Store{gangnam, haeundae},
	})
	if err != nil {
		t.Fatalf("FindEligibleStores: %v", err)
	}
	if res.Degraded {
		t.Fatal("expected a normal resolve, got degraded")
	}
	if len(res.Stores) != 1 || res.Stores[0].Name != "강남꽃집" {
		t.Fatalf("expected only 강남꽃집, got %d stores", len(res.Stores))
	}
}

func TestFindEligibleStores_ShortAndFullAreaFormsMatch(t *testing.T) {
	r := newTestResolver(t)

	// Store registered its coverage in the short form.
	store := testStore("서울꽃집",
		[]string{string(enums.ProductCategoryBouquet)},
		models.StoreServiceArea{
			ID:           uuid.New(),
			Province:     "서울",
			City:         "강남",
			CanonicalKey: "서울 강남",
			MinPriceKRW:  0,
		},
	)

	res, err := r.FindEligibleStores(context.Background(), Query{
		Area:     area.Area{Province: "서울특별시", City: "강남구"},
		Category: enums.ProductCategoryBouquet,
		PriceKRW: 40000,
		Stores:   []models.Store{store},
	})
	if err != nil {
		t.Fatalf("FindEligibleStores: %v", err)
	}
	if len(res.Stores) != 1 {
		t.Fatalf("expected short-form coverage to match full-form query, got %d stores", len(res.Stores))
	}
}

func TestFindEligibleStores_PriceFloorExcludes(t *testing.T) {
	r := newTestResolver(t)

	store := testStore("강남꽃집",
		[]string{string(enums.ProductCategoryCondolenceWreath)},
		serviceArea("서울특별시", "강남구", 80000),
	)

	res, err := r.FindEligibleStores(context.Background(), Query{
		Area:     area.Area{Province: "서울", City: "강남"},
		Category: enums.ProductCategoryCondolenceWreath,
		PriceKRW: 60000,
		Stores:   []models.Store{store},
	})
	if err != nil {
		t.Fatalf("FindEligibleStores: %v", err)
	}
	if len(res.Stores) != 0 {
		t.Fatalf("expected order below the store's price floor to be excluded, got %d stores", len(res.Stores))
	}
}

func TestFindEligibleStores_CategoryMismatchExcludes(t *testing.T) {
	r := newTestResolver(t)

	store := testStore("강남꽃집",
		[]string{string(enums.ProductCategoryBouquet)},
		serviceArea("서울특별시", "강남구", 0),
	)

	res, err := r.FindEligibleStores(context.Background(), Query{
		Area:     area.Area{Province: "서울", City: "강남"},
		Category: enums.ProductCategoryCondolenceWreath,
		PriceKRW: 60000,
		Stores:   []models.Store{store},
	})
	if err != nil {
		t.Fatalf("FindEligibleStores: %v", err)
	}
	if len(res.Stores) != 0 {
		t.Fatalf("expected category mismatch to exclude the store, got %d stores", len(res.Stores))
	}
}

func TestFindEligibleStores_MissingArea(t *testing.T) {
	r := newTestResolver(t)

	_, err := r.FindEligibleStores(context.Background(), Query{
		Category: enums.ProductCategoryBouquet,
		PriceKRW: 40000,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeMissingArea) {
		t.Fatalf("expected MISSING_AREA, got %v", err)
	}
}

func TestFindEligibleStores_DegradedFallback(t *testing.T) {
	r := newTestResolver(t)

	exact := testStore("강남꽃집",
		[]string{string(enums.ProductCategoryCondolenceWreath)},
		serviceArea("서울특별시", "강남구", 0),
	)
	otherCity := testStore("마포꽃집",
		[]string{string(enums.ProductCategoryCondolenceWreath)},
		serviceArea("서울특별시", "마포구", 0),
	)

	res, err := r.FindEligibleStores(context.Background(), Query{
		Area:             area.Area{Province: "서울특별시", City: "강남구"},
		Category:         enums.ProductCategoryCondolenceWreath,
		PriceKRW:         60000,
		Stores:           []models.Store{exact, otherCity},
		IndexUnavailable: true,
	})
	if err != nil {
		t.Fatalf("FindEligibleStores: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded flag on fallback pass")
	}
	if len(res.Stores) != 1 || res.Stores[0].Name != "강남꽃집" {
		t.Fatalf("degraded pass should match raw province/city only, got %d stores", len(res.Stores))
	}
}

func TestFindEligibleStores_DegradedProvinceOnlyQuery(t *testing.T) {
	r := newTestResolver(t)

	store := testStore("마포꽃집",
		[]string{string(enums.ProductCategoryBasket)},
		serviceArea("서울특별시", "마포구", 0),
	)

	res, err := r.FindEligibleStores(context.Background(), Query{
		Area:             area.Area{Province: "서울특별시"},
		Category:         enums.ProductCategoryBasket,
		PriceKRW:         50000,
		Stores:           []models.Store{store},
		IndexUnavailable: true,
	})
	if err != nil {
		t.Fatalf("FindEligibleStores: %v", err)
	}
	if len(res.Stores) != 1 {
		t.Fatalf("province-only degraded query should include all province stores, got %d", len(res.Stores))
	}
}
