package promotion

import "testing"

func TestTotallingApplierCapGrid(t *testing.T) {
	cases := []struct {
		name      string
		maxItems  int
		qtys      []int
		wantTotal string
		wantQtys  []int
	}{
		{name: "unlimited", maxItems: 0, qtys: []int{2, 3}, wantTotal: "12.50", wantQtys: []int{2, 3}},
		{name: "cap inside first item", maxItems: 1, qtys: []int{2, 3}, wantTotal: "2.50", wantQtys: []int{1}},
		{name: "cap spans items", maxItems: 4, qtys: []int{2, 3}, wantTotal: "10.00", wantQtys: []int{2, 2}},
		{name: "cap above quantity", maxItems: 10, qtys: []int{2, 3}, wantTotal: "12.50", wantQtys: []int{2, 3}},
		{name: "zero quantity items skipped", maxItems: 2, qtys: []int{0, 5, 1}, wantTotal: "5.00", wantQtys: []int{2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newContainer()
			applier := NewTotallingApplier(ApplierConfig{RuleID: 7, ActionID: 9, MaxItems: tc.maxItems, ActuallyApply: true, Recorder: c})
			for i, q := range tc.qtys {
				applier.Apply(newItem("S"+string(rune('A'+i)), "P", q, "100"), money("2.50"))
			}
			if !applier.Total().Equal(money(tc.wantTotal)) {
				t.Fatalf("expected total %s, got %s", tc.wantTotal, applier.Total())
			}
			if len(c.records) != len(tc.wantQtys) {
				t.Fatalf("expected %d records, got %d", len(tc.wantQtys), len(c.records))
			}
			for i, q := range tc.wantQtys {
				if c.records[i].Quantity != q {
					t.Fatalf("record %d: expected qty %d, got %d", i, q, c.records[i].Quantity)
				}
				if c.records[i].RuleID != 7 || c.records[i].ActionID != 9 {
					t.Fatalf("record %d: unexpected ids %d/%d", i, c.records[i].RuleID, c.records[i].ActionID)
				}
			}
		})
	}
}

func TestTotallingApplierDryRunLeavesItemsUntouched(t *testing.T) {
	c := newContainer()
	item := newItem("S1", "P1", 3, "30")
	applier := NewTotallingApplier(ApplierConfig{MaxItems: 2, Recorder: c})
	applier.Apply(item, money("1"))
	if !applier.Total().Equal(money("2")) {
		t.Fatalf("expected total 2, got %s", applier.Total())
	}
	if !item.DiscountAmount().IsZero() {
		t.Fatalf("expected item untouched, got discount %s", item.DiscountAmount())
	}
	if len(c.records) != 0 {
		t.Fatalf("expected no records, got %d", len(c.records))
	}
	if applier.Remaining() != 0 {
		t.Fatalf("expected cap consumed, got %d remaining", applier.Remaining())
	}
}

func TestTotallingApplierZeroPerUnitConsumesCapWithoutRecord(t *testing.T) {
	c := newContainer()
	applier := NewTotallingApplier(ApplierConfig{MaxItems: 3, ActuallyApply: true, Recorder: c})
	applier.Apply(newItem("FREE", "P", 2, "0"), money("0"))
	applier.Apply(newItem("PAID", "P", 5, "50"), money("1"))
	if !applier.Total().Equal(money("1")) {
		t.Fatalf("expected total 1, got %s", applier.Total())
	}
	if len(c.records) != 1 || c.records[0].SkuCode != "PAID" || c.records[0].Quantity != 1 {
		t.Fatalf("unexpected records %+v", c.records)
	}
}

func TestTotallingApplierRoundsEachLine(t *testing.T) {
	applier := NewTotallingApplier(ApplierConfig{})
	applier.Apply(newItem("S", "P", 3, "10"), money("0.3333333333"))
	if !applier.Total().Equal(money("1.00")) {
		t.Fatalf("expected 1.00, got %s", applier.Total())
	}
}

func TestTotallingApplierNegativeCapIsUnlimited(t *testing.T) {
	applier := NewTotallingApplier(ApplierConfig{MaxItems: -4})
	if applier.MaxItems() != 0 {
		t.Fatalf("expected cap clamped to 0, got %d", applier.MaxItems())
	}
	applier.ApplyQuantity(newItem("S", "P", 2, "10"), money("1"), 5)
	if !applier.Total().Equal(money("2")) {
		t.Fatalf("expected quantity clamped to item qty, got %s", applier.Total())
	}
}
