package topology

// groupGraph is the arena the hierarchy is resolved in. Groups live in a
// slice in batch order; parent links are arena indices, so breaking a link
// during cycle neutralization is a plain slice write with no aliasing.
type groupGraph struct {
	groups []*Group
	index  map[Identity]int
	// parent[i] is the arena index of groups[i]'s resolved parent, -1 none.
	parent []int
}

const noParent = -1

// buildGraph links each group to its declared parent. A declared parent
// that is absent from the batch (dangling reference) resolves to no parent:
// an unreachable ancestor is treated as a root, not a fault.
func buildGraph(groups []*Group) *groupGraph {
	g := &groupGraph{
		groups: groups,
		index:  make(map[Identity]int, len(groups)),
		parent: make([]int, len(groups)),
	}
	for i, grp := range groups {
		g.index[grp.Identity] = i
	}
	for i, grp := range groups {
		g.parent[i] = noParent
		if grp.ParentRef == None || grp.ParentRef == grp.Identity {
			// Immediate self-references stay linked here; the cycle pass
			// detects and reports them as one-element cycles.
			if grp.ParentRef == grp.Identity {
				g.parent[i] = i
			}
			continue
		}
		if pi, ok := g.index[grp.ParentRef]; ok {
			g.parent[i] = pi
		}
	}
	return g
}

// computePrefixes derives depth and full prefix for every group in a
// root-first pass. It must only run after breakCycles has made every parent
// chain finite. Results live in side tables rather than lazy fields, so a
// zero depth can never be mistaken for "not yet computed".
func (g *groupGraph) computePrefixes() (depth []int, fullPrefix []string) {
	n := len(g.groups)
	depth = make([]int, n)
	fullPrefix = make([]string, n)
	done := make([]bool, n)

	var stack []int
	for i := 0; i < n; i++ {
		if done[i] {
			continue
		}
		// Climb to the nearest processed ancestor, then unwind root-first.
		stack = stack[:0]
		for j := i; j != noParent && !done[j]; j = g.parent[j] {
			stack = append(stack, j)
		}
		for k := len(stack) - 1; k >= 0; k-- {
			j := stack[k]
			p := g.parent[j]
			if p == noParent {
				depth[j] = 1
				fullPrefix[j] = g.groups[j].RawPrefix
			} else {
				depth[j] = depth[p] + 1
				fullPrefix[j] = fullPrefix[p] + g.groups[j].RawPrefix
			}
			done[j] = true
		}
	}
	return depth, fullPrefix
}
