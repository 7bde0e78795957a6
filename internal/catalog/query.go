package catalog

import (
	"sort"

	"github.com/avvvet/storebuddy/internal/models"
)

// BrandCount is one row of the count-by-brand report
type BrandCount struct {
	Brand    string `json:"brand"`
	Products int    `json:"products"`
}

// CategoryCount is one row of the count-by-category report
type CategoryCount struct {
	Category string `json:"category"`
	Products int    `json:"products"`
}

// PriceCategoryCount is one row of the count-by-price-category report
type PriceCategoryCount struct {
	PriceCategory string `json:"price_category"`
	Count         int    `json:"count"`
}

// CountByBrand counts products per brand in first-seen order.
func (s *Store) CountByBrand() []BrandCount {
	keys, counts := s.countBy(func(p models.Product) string { return p.Brand })
	out := make([]BrandCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, BrandCount{Brand: k, Products: counts[k]})
	}
	return out
}

// CountByCategory counts products per category in first-seen order.
func (s *Store) CountByCategory() []CategoryCount {
	keys, counts := s.countBy(func(p models.Product) string { return p.Category })
	out := make([]CategoryCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, CategoryCount{Category: k, Products: counts[k]})
	}
	return out
}

// CountByPriceCategory counts products per price tier in first-seen order.
func (s *Store) CountByPriceCategory() []PriceCategoryCount {
	keys, counts := s.countBy(func(p models.Product) string { return p.PriceCategory })
	out := make([]PriceCategoryCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, PriceCategoryCount{PriceCategory: k, Count: counts[k]})
	}
	return out
}

func (s *Store) countBy(key func(models.Product) string) ([]string, map[string]int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	counts := make(map[string]int)
	for _, p := range s.products {
		k := key(p)
		if _, ok := counts[k]; !ok {
			keys = append(keys, k)
		}
		counts[k]++
	}
	return keys, counts
}

// Categories returns the distinct categories of in-stock products in catalog order.
func (s *Store) Categories() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range s.InStock() {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// SortedByQuantity returns the catalog ordered by quantity. Ties keep catalog order.
func (s *Store) SortedByQuantity(descending bool) []models.Product {
	return s.sortedBy(descending, func(a, b models.Product) bool { return a.Quantity < b.Quantity })
}

// SortedByPrice returns the catalog ordered by price; products without a
// price sort as zero.
func (s *Store) SortedByPrice(descending bool) []models.Product {
	return s.sortedBy(descending, func(a, b models.Product) bool { return a.UnitPrice() < b.UnitPrice() })
}

func (s *Store) sortedBy(descending bool, less func(a, b models.Product) bool) []models.Product {
	out := s.All()
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}
