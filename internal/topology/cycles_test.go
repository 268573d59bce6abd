package topology

import (
	"reflect"
	"testing"
)

func idents(names ...string) []Identity {
	out := make([]Identity, len(names))
	for i, n := range names {
		out[i] = IdentityOf(n)
	}
	return out
}

func TestBreakCyclesSelfLoop(t *testing.T) {
	api := grp("Api", "/api", IdentityOf("Api"))
	g := buildGraph([]*Group{api})

	cycles := g.breakCycles()
	if len(cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(cycles))
	}
	if want := idents("Api", "Api"); !reflect.DeepEqual(cycles[0].Path, want) {
		t.Errorf("cycle path = %v, want %v", cycles[0].Path, want)
	}
	if g.parent[0] != noParent {
		t.Errorf("self-loop not broken: parent = %d", g.parent[0])
	}
	_, full := g.computePrefixes()
	if full[0] != "/api" {
		t.Errorf("full prefix = %q, want /api", full[0])
	}
}

func TestBreakCyclesTwoNodeCycle(t *testing.T) {
	a := grp("A", "/a", IdentityOf("B"))
	b := grp("B", "/b", IdentityOf("A"))
	g := buildGraph([]*Group{a, b})

	cycles := g.breakCycles()
	if len(cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(cycles))
	}
	if want := idents("A", "B", "A"); !reflect.DeepEqual(cycles[0].Path, want) {
		t.Errorf("cycle path = %v, want %v", cycles[0].Path, want)
	}
	// The last group visited before the repeat loses its parent link; the
	// rest of the chain stays intact.
	if g.parent[1] != noParent {
		t.Errorf("B parent = %d, want none", g.parent[1])
	}
	if g.parent[0] != 1 {
		t.Errorf("A parent = %d, want B", g.parent[0])
	}
}

func TestBreakCyclesThreeNodeCycle(t *testing.T) {
	// A -> C, B -> A, C -> B, walked from A.
	a := grp("A", "/a", IdentityOf("C"))
	b := grp("B", "/b", IdentityOf("A"))
	c := grp("C", "/c", IdentityOf("B"))
	g := buildGraph([]*Group{a, b, c})

	cycles := g.breakCycles()
	if len(cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(cycles))
	}
	if want := idents("A", "C", "B", "A"); !reflect.DeepEqual(cycles[0].Path, want) {
		t.Errorf("cycle path = %v, want %v", cycles[0].Path, want)
	}
	// Every chain must now terminate.
	depth, _ := g.computePrefixes()
	for i, d := range depth {
		if d < 1 || d > 3 {
			t.Errorf("group %d depth = %d", i, d)
		}
	}
}

func TestBreakCyclesDisjointCycles(t *testing.T) {
	a := grp("A", "/a", IdentityOf("A"))
	b := grp("B", "/b", IdentityOf("C"))
	c := grp("C", "/c", IdentityOf("B"))
	free := grp("Free", "/free", None)
	g := buildGraph([]*Group{a, b, c, free})

	cycles := g.breakCycles()
	if len(cycles) != 2 {
		t.Fatalf("cycles = %d, want 2", len(cycles))
	}
	// Groups outside any cycle stay untouched and unreported.
	for _, cy := range cycles {
		for _, id := range cy.Path {
			if id == free.Identity {
				t.Errorf("acyclic group reported in cycle %v", cy.Names)
			}
		}
	}
	if g.parent[3] != noParent {
		t.Errorf("Free parent = %d, want none", g.parent[3])
	}
}

func TestBreakCyclesChainIntoCycle(t *testing.T) {
	// Entry -> A -> B -> A. Entry is not a cycle member; the cycle is
	// reported from its first on-chain group (A).
	entry := grp("Entry", "/e", IdentityOf("A"))
	a := grp("A", "/a", IdentityOf("B"))
	b := grp("B", "/b", IdentityOf("A"))
	g := buildGraph([]*Group{entry, a, b})

	cycles := g.breakCycles()
	if len(cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(cycles))
	}
	if want := idents("A", "B", "A"); !reflect.DeepEqual(cycles[0].Path, want) {
		t.Errorf("cycle path = %v, want %v", cycles[0].Path, want)
	}
	// Entry keeps its parent; the break happens inside the loop.
	if g.parent[0] != 1 {
		t.Errorf("Entry parent = %d, want A", g.parent[0])
	}
	// B lost its link, so the surviving chain is Entry -> A -> B (root).
	_, full := g.computePrefixes()
	if full[0] != "/b/a/e" {
		t.Errorf("Entry full prefix = %q, want /b/a/e", full[0])
	}
}

func TestBreakCyclesDeterministicAcrossOrder(t *testing.T) {
	build := func(order []string) []Cycle {
		parents := map[string]string{"A": "C", "B": "A", "C": "B"}
		var gs []*Group
		for _, n := range order {
			gs = append(gs, grp(n, "/"+n, IdentityOf(parents[n])))
		}
		return buildGraph(gs).breakCycles()
	}
	// Each batch order reports the same single cycle; only the rotation of
	// the closed path differs with the walk's starting group.
	for _, order := range [][]string{{"A", "B", "C"}, {"B", "C", "A"}, {"C", "A", "B"}} {
		cycles := build(order)
		if len(cycles) != 1 {
			t.Fatalf("order %v: cycles = %d, want 1", order, len(cycles))
		}
		if len(cycles[0].Path) != 4 {
			t.Errorf("order %v: path = %v", order, cycles[0].Path)
		}
	}
}
