package topology

import "strings"

// Kind is the classification outcome for one declaration.
type Kind int

const (
	// KindNone means no role marker matched; the declaration is not part of
	// this analysis and is silently excluded.
	KindNone Kind = iota
	// KindEndpoint means exactly the endpoint marker matched.
	KindEndpoint
	// KindGroup means exactly the group marker matched.
	KindGroup
	// KindInvalid means more than one marker matched. The declaration is
	// reported and participates in no further step.
	KindInvalid
)

// Classified is the tagged result of classifying one declaration. Exactly
// one of Endpoint/Group is non-nil for the corresponding Kind.
type Classified struct {
	Kind     Kind
	Endpoint *Endpoint
	Group    *Group
}

// Classify decides whether a declaration is an endpoint, a group, neither,
// or invalid (dual-classified). It never silently picks one role when more
// than one marker matched.
func Classify(d Declaration) Classified {
	if len(d.Markers) == 0 {
		return Classified{Kind: KindNone}
	}
	if len(d.Markers) > 1 {
		return Classified{Kind: KindInvalid}
	}
	switch d.Markers[0] {
	case MarkerEndpoint:
		return Classified{Kind: KindEndpoint, Endpoint: &Endpoint{
			Identity:   d.Identity,
			Name:       d.Name,
			RawPattern: d.RawPath,
			Methods:    canonicalMethods(d.Methods),
			GroupRef:   d.Parent,
			Loc:        d.Loc,
		}}
	case MarkerGroup:
		return Classified{Kind: KindGroup, Group: &Group{
			Identity:  d.Identity,
			Name:      d.Name,
			RawPrefix: d.RawPath,
			ParentRef: d.Parent,
			Loc:       d.Loc,
		}}
	default:
		return Classified{Kind: KindNone}
	}
}

// MethodAny is the wildcard method recorded for endpoints that declare no
// HTTP method. It only ever conflicts with itself.
const MethodAny = "ANY"

// canonicalMethods upper-cases and de-duplicates a method set, preserving
// first-seen order. An empty set becomes [MethodAny].
func canonicalMethods(methods []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	if len(out) == 0 {
		return []string{MethodAny}
	}
	return out
}
