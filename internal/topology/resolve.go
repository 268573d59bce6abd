package topology

import (
	"context"
	"log/slog"
)

// ResolvedGroup is one group after hierarchy resolution.
type ResolvedGroup struct {
	Identity   Identity `json:"identity"`
	Name       string   `json:"name"`
	RawPrefix  string   `json:"raw_prefix"`
	Parent     Identity `json:"parent,omitempty"` // None after cycle breaking made it a root
	Depth      int      `json:"depth"`            // root = 1
	FullPrefix string   `json:"full_prefix"`
	Cycles     []Cycle  `json:"cycles,omitempty"` // cycles this group starts
	Loc        Location `json:"location"`
}

// ResolvedEndpoint is one endpoint with its group-qualified paths.
type ResolvedEndpoint struct {
	Identity       Identity `json:"identity"`
	Name           string   `json:"name"`
	Methods        []string `json:"methods"`
	Group          Identity `json:"group,omitempty"`
	EffectivePath  string   `json:"effective_path"`
	NormalizedPath string   `json:"normalized_path"`
	Loc            Location `json:"location"`
}

// Topology is the resolved output of one batch. It is immutable once
// returned and safe to read concurrently.
type Topology struct {
	Groups      []ResolvedGroup    `json:"groups"`
	Endpoints   []ResolvedEndpoint `json:"endpoints"`
	Diagnostics []Diagnostic       `json:"diagnostics"`
}

// Options tunes resolution.
type Options struct {
	// ExcludePaths are normalized paths to skip during conflict analysis
	// (health probes and similar intentional duplicates).
	ExcludePaths []string
}

// Resolve runs the full pass over one finalized batch: classification,
// hierarchy linking, cycle neutralization, prefix computation, and conflict
// detection. It never aborts on a structurally bad declaration; defects are
// collected as diagnostics alongside the best-effort topology.
//
// Cancellation is coarse: the context is checked once before the pass
// starts. The pass itself is pure in-memory computation and runs to
// completion.
func Resolve(ctx context.Context, batch *Batch, opts Options) (*Topology, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	decls := batch.Finalize()

	var (
		endpoints []*Endpoint
		groups    []*Group
		diags     []Diagnostic
	)
	for _, d := range decls {
		c := Classify(d)
		switch c.Kind {
		case KindEndpoint:
			endpoints = append(endpoints, c.Endpoint)
		case KindGroup:
			groups = append(groups, c.Group)
		case KindInvalid:
			diags = append(diags, classificationConflict(d))
		}
	}
	slog.Info("topology.classified",
		"declarations", len(decls), "endpoints", len(endpoints), "groups", len(groups), "invalid", len(diags))

	g := buildGraph(groups)
	cycles := g.breakCycles()
	depth, fullPrefix := g.computePrefixes()
	if len(cycles) > 0 {
		slog.Warn("topology.cycles", "count", len(cycles))
	}

	cyclesByStart := make(map[Identity][]Cycle, len(cycles))
	for _, c := range cycles {
		cyclesByStart[c.Start] = append(cyclesByStart[c.Start], c)
		start := g.groups[g.index[c.Start]]
		diags = append(diags, cyclicHierarchy(start, c.Path, c.Names))
	}

	prefixOf := func(id Identity) (string, bool) {
		i, ok := g.index[id]
		if !ok {
			return "", false
		}
		return fullPrefix[i], true
	}
	effective := func(ep *Endpoint) string {
		// A dangling group reference qualifies nothing, same as no group.
		if p, ok := prefixOf(ep.GroupRef); ok {
			return p + ep.RawPattern
		}
		return ep.RawPattern
	}

	excludedSet := make(map[string]bool, len(opts.ExcludePaths))
	for _, p := range opts.ExcludePaths {
		excludedSet[NormalizePath(p)] = true
	}
	var excluded func(string) bool
	if len(excludedSet) > 0 {
		excluded = func(norm string) bool { return excludedSet[norm] }
	}
	diags = append(diags, detectConflicts(endpoints, effective, excluded)...)

	topo := &Topology{Diagnostics: diags}
	for i, grp := range g.groups {
		parent := None
		if g.parent[i] != noParent {
			parent = g.groups[g.parent[i]].Identity
		}
		topo.Groups = append(topo.Groups, ResolvedGroup{
			Identity:   grp.Identity,
			Name:       grp.Name,
			RawPrefix:  grp.RawPrefix,
			Parent:     parent,
			Depth:      depth[i],
			FullPrefix: fullPrefix[i],
			Cycles:     cyclesByStart[grp.Identity],
			Loc:        grp.Loc,
		})
	}
	for _, ep := range endpoints {
		eff := effective(ep)
		group := None
		if _, ok := g.index[ep.GroupRef]; ok {
			group = ep.GroupRef
		}
		topo.Endpoints = append(topo.Endpoints, ResolvedEndpoint{
			Identity:       ep.Identity,
			Name:           ep.Name,
			Methods:        ep.Methods,
			Group:          group,
			EffectivePath:  eff,
			NormalizedPath: NormalizePath(eff),
			Loc:            ep.Loc,
		})
	}
	slog.Info("topology.resolved",
		"groups", len(topo.Groups), "endpoints", len(topo.Endpoints), "diagnostics", len(topo.Diagnostics))
	return topo, nil
}
