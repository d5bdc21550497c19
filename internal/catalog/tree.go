package catalog

import (
	"sort"
	"strings"
)

// Separator joins a category code and its catalog code into a compound id.
const Separator = "|"

// CompoundID builds the categoryCode|catalogCode identifier.
func CompoundID(categoryCode, catalogCode string) string {
	return categoryCode + Separator + catalogCode
}

// SplitCompoundID is the inverse of CompoundID.
func SplitCompoundID(id string) (categoryCode, catalogCode string, ok bool) {
	categoryCode, catalogCode, ok = strings.Cut(id, Separator)
	if !ok || categoryCode == "" || catalogCode == "" {
		return "", "", false
	}
	return categoryCode, catalogCode, true
}

// Tree is a category hierarchy plus the direct category links of products.
type Tree struct {
	parents  map[string]string
	products map[string][]string
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{parents: make(map[string]string), products: make(map[string][]string)}
}

// AddCategory registers a category with an optional parent compound id.
func (t *Tree) AddCategory(id, parentID string) {
	if id == "" {
		return
	}
	if id == parentID {
		parentID = ""
	}
	t.parents[id] = parentID
}

// LinkProduct records that the product sits directly in the category.
func (t *Tree) LinkProduct(productCode, categoryID string) {
	if productCode == "" || categoryID == "" {
		return
	}
	for _, existing := range t.products[productCode] {
		if existing == categoryID {
			return
		}
	}
	t.products[productCode] = append(t.products[productCode], categoryID)
}

// Ancestors returns id followed by its parents up to the root. Cycles in the
// stored hierarchy are cut at the first repeat.
func (t *Tree) Ancestors(id string) []string {
	out := make([]string, 0, 4)
	seen := make(map[string]struct{})
	for cur := id; cur != ""; cur = t.parents[cur] {
		if _, ok := seen[cur]; ok {
			break
		}
		seen[cur] = struct{}{}
		out = append(out, cur)
	}
	return out
}

// Memberships returns every compound category the product belongs to,
// counting each direct category's ancestors. The result is sorted.
func (t *Tree) Memberships(productCode string) []string {
	set := make(map[string]struct{})
	for _, direct := range t.products[productCode] {
		for _, id := range t.Ancestors(direct) {
			set[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Snapshot resolves the memberships of the given products.
func (t *Tree) Snapshot(productCodes []string) Snapshot {
	s := Snapshot{memberships: make(map[string]map[string]struct{}, len(productCodes))}
	for _, code := range productCodes {
		s.add(code, t.Memberships(code))
	}
	return s
}

// Snapshot is a read-only view of product category memberships, ancestors
// included. It answers category questions without I/O during evaluation.
type Snapshot struct {
	memberships map[string]map[string]struct{}
}

// NewSnapshot builds a snapshot from product code to compound ids.
func NewSnapshot(memberships map[string][]string) Snapshot {
	s := Snapshot{memberships: make(map[string]map[string]struct{}, len(memberships))}
	for code, ids := range memberships {
		s.add(code, ids)
	}
	return s
}

func (s Snapshot) add(productCode string, ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	s.memberships[productCode] = set
}

// IsProductInCategory reports membership in the compound category or any of
// its descendants.
func (s Snapshot) IsProductInCategory(productCode, compoundCategoryID string) bool {
	_, ok := s.memberships[productCode][compoundCategoryID]
	return ok
}

// CategoriesOf returns the distinct category codes of the product, ancestors
// included, sorted.
func (s Snapshot) CategoriesOf(productCode string) []string {
	set := make(map[string]struct{})
	for id := range s.memberships[productCode] {
		if code, _, ok := SplitCompoundID(id); ok {
			set[code] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Memberships returns the compound ids recorded for the product, sorted.
func (s Snapshot) Memberships(productCode string) []string {
	out := make([]string, 0, len(s.memberships[productCode]))
	for id := range s.memberships[productCode] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the snapshot knows the product.
func (s Snapshot) Has(productCode string) bool {
	_, ok := s.memberships[productCode]
	return ok
}
