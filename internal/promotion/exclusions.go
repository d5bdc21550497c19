package promotion

import "strings"

const (
	exclusionProducts   = "productcodes"
	exclusionSkus       = "skucodes"
	exclusionCategories = "categorycodes"
)

// Exclusions holds product, sku and category codes a rule must never discount.
// The zero value excludes nothing. Values are immutable once parsed.
type Exclusions struct {
	products   map[string]struct{}
	skus       map[string]struct{}
	categories map[string]struct{}
}

// ParseExclusions reads an exception string of the form
//
//	ProductCodes:P1,P2|SkuCodes:S1;CategoryCodes:C1
//
// Sections may be separated by '|' or ';'. Unknown keys, sections without a
// key and blank codes are skipped so one bad token never drops the rest.
func ParseExclusions(raw string) Exclusions {
	var ex Exclusions
	sections := strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ';' || r == '\n' })
	for _, section := range sections {
		key, value, ok := strings.Cut(section, ":")
		if !ok {
			continue
		}
		var target *map[string]struct{}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case exclusionProducts:
			target = &ex.products
		case exclusionSkus:
			target = &ex.skus
		case exclusionCategories:
			target = &ex.categories
		default:
			continue
		}
		for _, code := range strings.Split(value, ",") {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			if *target == nil {
				*target = make(map[string]struct{})
			}
			(*target)[code] = struct{}{}
		}
	}
	return ex
}

// IsProductExcluded reports whether the product code is excluded.
func (e Exclusions) IsProductExcluded(productCode string) bool {
	_, ok := e.products[productCode]
	return ok
}

// IsSkuExcluded reports whether the sku code is excluded.
func (e Exclusions) IsSkuExcluded(skuCode string) bool {
	_, ok := e.skus[skuCode]
	return ok
}

// IsCategoryExcluded reports whether the category code is excluded.
func (e Exclusions) IsCategoryExcluded(categoryCode string) bool {
	_, ok := e.categories[categoryCode]
	return ok
}

// Empty reports whether nothing is excluded.
func (e Exclusions) Empty() bool {
	return len(e.products) == 0 && len(e.skus) == 0 && len(e.categories) == 0
}

// excludesItem covers the sku and product lists only.
func (e Exclusions) excludesItem(item Item) bool {
	return e.IsSkuExcluded(item.SkuCode()) || e.IsProductExcluded(item.ProductCode())
}
