package topology

import "sort"

// methodPath is the bucket key for ambiguity detection.
type methodPath struct {
	method string
	path   string
}

// routeEntry is one (endpoint, method) pair with its normalized path.
type routeEntry struct {
	endpoint *Endpoint
	order    int // batch position, for stable pair output
}

// detectConflicts finds ambiguous routes: endpoints whose method and
// normalized effective path collide. Every unordered pair in a colliding
// bucket is reported, so a bucket of n endpoints yields n·(n−1)/2
// diagnostics. Quadratic only in the bucket size; genuine conflicts involve
// few endpoints.
//
// effectivePath returns the endpoint's group-qualified raw path; exclusions
// are matched against the normalized form.
func detectConflicts(endpoints []*Endpoint, effective func(*Endpoint) string, excluded func(string) bool) []Diagnostic {
	buckets := make(map[methodPath][]routeEntry)
	for i, ep := range endpoints {
		norm := NormalizePath(effective(ep))
		if excluded != nil && excluded(norm) {
			continue
		}
		// One entry per declared method: an endpoint declaring three
		// methods occupies three buckets with the same path.
		for _, m := range ep.Methods {
			key := methodPath{method: m, path: norm}
			buckets[key] = append(buckets[key], routeEntry{endpoint: ep, order: i})
		}
	}

	keys := make([]methodPath, 0, len(buckets))
	for k, entries := range buckets {
		if len(entries) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].method != keys[b].method {
			return keys[a].method < keys[b].method
		}
		return keys[a].path < keys[b].path
	})

	var diags []Diagnostic
	for _, k := range keys {
		entries := buckets[k]
		sort.Slice(entries, func(a, b int) bool { return entries[a].order < entries[b].order })
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				diags = append(diags, ambiguousRoute(entries[i].endpoint, entries[j].endpoint, k.method, k.path))
			}
		}
	}
	return diags
}
