package catalog

import (
	"reflect"
	"testing"
)

func sampleTree() *Tree {
	tree := NewTree()
	tree.AddCategory("APPAREL|MAIN", "")
	tree.AddCategory("SHOES|MAIN", "APPAREL|MAIN")
	tree.AddCategory("RUNNING|MAIN", "SHOES|MAIN")
	tree.AddCategory("SALE|OUTLET", "")
	tree.LinkProduct("P1", "RUNNING|MAIN")
	tree.LinkProduct("P1", "SALE|OUTLET")
	tree.LinkProduct("P1", "SALE|OUTLET")
	tree.LinkProduct("P2", "APPAREL|MAIN")
	return tree
}

func TestAncestors(t *testing.T) {
	got := sampleTree().Ancestors("RUNNING|MAIN")
	want := []string{"RUNNING|MAIN", "SHOES|MAIN", "APPAREL|MAIN"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAncestorsStopsOnCycle(t *testing.T) {
	tree := NewTree()
	tree.AddCategory("A|C", "B|C")
	tree.AddCategory("B|C", "A|C")
	if got := tree.Ancestors("A|C"); len(got) != 2 {
		t.Fatalf("expected cycle cut after 2 entries, got %v", got)
	}
}

func TestSnapshotMembership(t *testing.T) {
	snap := sampleTree().Snapshot([]string{"P1", "P2", "P9"})
	if !snap.IsProductInCategory("P1", "APPAREL|MAIN") {
		t.Fatalf("expected descendant membership")
	}
	if snap.IsProductInCategory("P2", "SHOES|MAIN") {
		t.Fatalf("parent category must not imply child membership")
	}
	if snap.IsProductInCategory("P1", "SHOES|OUTLET") {
		t.Fatalf("catalog code must be part of the match")
	}
	want := []string{"APPAREL", "RUNNING", "SALE", "SHOES"}
	if got := snap.CategoriesOf("P1"); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !snap.Has("P9") || len(snap.CategoriesOf("P9")) != 0 {
		t.Fatalf("unknown product must resolve to no categories")
	}
}

func TestSplitCompoundID(t *testing.T) {
	code, catalog, ok := SplitCompoundID(CompoundID("SHOES", "MAIN"))
	if !ok || code != "SHOES" || catalog != "MAIN" {
		t.Fatalf("unexpected split %q %q %v", code, catalog, ok)
	}
	if _, _, ok := SplitCompoundID("SHOES"); ok {
		t.Fatalf("expected malformed id to fail")
	}
}
