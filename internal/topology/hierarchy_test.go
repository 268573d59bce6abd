package topology

import "testing"

func grp(name, prefix string, parent Identity) *Group {
	return &Group{Identity: IdentityOf(name), Name: name, RawPrefix: prefix, ParentRef: parent}
}

func TestBuildGraphResolvesParents(t *testing.T) {
	api := grp("Api", "/api", None)
	v1 := grp("V1", "/v1", api.Identity)
	g := buildGraph([]*Group{api, v1})

	if g.parent[0] != noParent {
		t.Errorf("Api parent = %d, want none", g.parent[0])
	}
	if g.parent[1] != 0 {
		t.Errorf("V1 parent = %d, want 0", g.parent[1])
	}
}

func TestBuildGraphDanglingParentIsRoot(t *testing.T) {
	orphan := grp("Orphan", "/orphan", IdentityOf("NotInBatch"))
	g := buildGraph([]*Group{orphan})
	if g.parent[0] != noParent {
		t.Fatalf("dangling parent must resolve to none, got %d", g.parent[0])
	}
	_, full := g.computePrefixes()
	if full[0] != "/orphan" {
		t.Errorf("full prefix = %q, want raw prefix", full[0])
	}
}

func TestComputePrefixesRootEqualsRaw(t *testing.T) {
	api := grp("Api", "/api", None)
	g := buildGraph([]*Group{api})
	depth, full := g.computePrefixes()
	if depth[0] != 1 {
		t.Errorf("root depth = %d, want 1", depth[0])
	}
	if full[0] != "/api" {
		t.Errorf("root full prefix = %q, want /api", full[0])
	}
}

func TestComputePrefixesChildConcatenation(t *testing.T) {
	api := grp("Api", "/api", None)
	v1 := grp("V1", "/v1", api.Identity)
	users := grp("Users", "/users", v1.Identity)
	// Child listed before its parent: the root-first pass must not depend
	// on batch order.
	g := buildGraph([]*Group{users, v1, api})
	depth, full := g.computePrefixes()

	want := map[string]struct {
		depth int
		full  string
	}{
		"Api":   {1, "/api"},
		"V1":    {2, "/api/v1"},
		"Users": {3, "/api/v1/users"},
	}
	for i, gr := range g.groups {
		w := want[gr.Name]
		if depth[i] != w.depth {
			t.Errorf("%s depth = %d, want %d", gr.Name, depth[i], w.depth)
		}
		if full[i] != w.full {
			t.Errorf("%s full prefix = %q, want %q", gr.Name, full[i], w.full)
		}
	}
}

func TestComputePrefixesNoImplicitSeparator(t *testing.T) {
	a := grp("A", "api", None)
	b := grp("B", "v1", a.Identity)
	g := buildGraph([]*Group{a, b})
	_, full := g.computePrefixes()
	if full[1] != "apiv1" {
		t.Errorf("full prefix = %q, want plain concatenation %q", full[1], "apiv1")
	}
}

func TestDiamondShapeResolves(t *testing.T) {
	root := grp("Root", "/root", None)
	left := grp("Left", "/left", root.Identity)
	right := grp("Right", "/right", root.Identity)
	g := buildGraph([]*Group{root, left, right})
	if cycles := g.breakCycles(); len(cycles) != 0 {
		t.Fatalf("diamond produced %d cycles, want 0", len(cycles))
	}
	depth, full := g.computePrefixes()
	if full[1] != "/root/left" || full[2] != "/root/right" {
		t.Errorf("prefixes = %q, %q", full[1], full[2])
	}
	if depth[1] != 2 || depth[2] != 2 {
		t.Errorf("depths = %d, %d, want 2, 2", depth[1], depth[2])
	}
}
