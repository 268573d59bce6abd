package topology

// Cycle is one detected loop in the group hierarchy. Path is closed: the
// first identity is repeated at the end.
type Cycle struct {
	Start Identity   `json:"start"`
	Path  []Identity `json:"path"`
	Names []string   `json:"names"`
}

// Colors for the marking walk.
const (
	white uint8 = iota // unvisited
	gray               // on the current walk's chain
	black              // fully processed
)

// breakCycles guarantees every parent chain terminates. It walks each
// group's chain once under global three-color marking: hitting a gray group
// means the current chain looped, and the loop members are the chain suffix
// from that group onward. The link of the last group visited before the
// repeat is cleared, so the repeated group no longer points into the loop.
//
// Marking every visited group black before the next walk makes detection
// independent of batch order: each cycle is found and reported exactly
// once, and groups outside any cycle are never touched. (A per-group
// re-walk with a fresh visited set would make the reported cycle set depend
// on iteration order, because earlier breaks mutate chains later walks
// would have traversed.)
func (g *groupGraph) breakCycles() []Cycle {
	n := len(g.groups)
	color := make([]uint8, n)
	// pos[i] is i's position on the current chain while gray.
	pos := make([]int, n)

	var cycles []Cycle
	var chain []int

	for i := 0; i < n; i++ {
		if color[i] != white {
			continue
		}
		chain = chain[:0]
		j := i
		for j != noParent && color[j] == white {
			color[j] = gray
			pos[j] = len(chain)
			chain = append(chain, j)
			j = g.parent[j]
		}
		if j != noParent && color[j] == gray {
			// The chain looped back to j. Members are chain[pos[j]:].
			members := chain[pos[j]:]
			last := members[len(members)-1]
			g.parent[last] = noParent
			cycles = append(cycles, g.cycleOf(members))
		}
		for _, k := range chain {
			color[k] = black
		}
	}
	return cycles
}

// cycleOf builds the closed, ordered cycle record for a member index list.
func (g *groupGraph) cycleOf(members []int) Cycle {
	path := make([]Identity, 0, len(members)+1)
	names := make([]string, 0, len(members)+1)
	for _, m := range members {
		path = append(path, g.groups[m].Identity)
		names = append(names, g.groups[m].Name)
	}
	path = append(path, g.groups[members[0]].Identity)
	names = append(names, g.groups[members[0]].Name)
	return Cycle{Start: path[0], Path: path, Names: names}
}
