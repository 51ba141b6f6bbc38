package enums

import "fmt"

// ProductCategory maps to the product_category enum in Postgres.
// Values are the Korean trade names used by florists on the platform.
type ProductCategory string

const (
	ProductCategoryCondolenceWreath ProductCategory = "근조화환"
	ProductCategoryCelebrationWreath ProductCategory = "축하화환"
	ProductCategoryBouquet           ProductCategory = "꽃다발"
	ProductCategoryBasket            ProductCategory = "꽃바구니"
	ProductCategoryEasternOrchid     ProductCategory = "동양란"
	ProductCategoryWesternOrchid     ProductCategory = "서양란"
	ProductCategoryFoliagePlant      ProductCategory = "관엽식물"
)

var validProductCategories = []ProductCategory{
	ProductCategoryCondolenceWreath,
	ProductCategoryCelebrationWreath,
	ProductCategoryBouquet,
	ProductCategoryBasket,
	ProductCategoryEasternOrchid,
	ProductCategoryWesternOrchid,
	ProductCategoryFoliagePlant,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
