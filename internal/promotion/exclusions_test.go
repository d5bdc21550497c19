package promotion

import "testing"

func TestParseExclusions(t *testing.T) {
	ex := ParseExclusions("ProductCodes:P1, P2|SkuCodes:S1;categorycodes:C1\nBogus:X|NoKey")
	for _, p := range []string{"P1", "P2"} {
		if !ex.IsProductExcluded(p) {
			t.Fatalf("expected product %s excluded", p)
		}
	}
	if !ex.IsSkuExcluded("S1") {
		t.Fatalf("expected sku excluded")
	}
	if !ex.IsCategoryExcluded("C1") {
		t.Fatalf("expected category excluded")
	}
	if ex.IsProductExcluded("X") || ex.IsSkuExcluded("X") || ex.IsCategoryExcluded("X") {
		t.Fatalf("unknown key must be ignored")
	}
	if ex.Empty() {
		t.Fatalf("expected non-empty exclusions")
	}
}

func TestParseExclusionsEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "ProductCodes:", "SkuCodes: , ,"} {
		if !ParseExclusions(raw).Empty() {
			t.Fatalf("expected %q to exclude nothing", raw)
		}
	}
	var zero Exclusions
	if zero.IsProductExcluded("P") || !zero.Empty() {
		t.Fatalf("zero value must exclude nothing")
	}
}
