package topology

import (
	"fmt"
	"strings"
)

// DiagKind identifies one diagnostic category.
type DiagKind string

const (
	// DiagClassificationConflict: a declaration matched more than one role
	// marker. Fatal for that declaration only.
	DiagClassificationConflict DiagKind = "classification_conflict"
	// DiagCyclicGroupHierarchy: a group's parent chain looped. The chain was
	// broken so resolution could proceed.
	DiagCyclicGroupHierarchy DiagKind = "cyclic_group_hierarchy"
	// DiagAmbiguousRoute: two endpoints bind the same method and normalized
	// effective path. Advisory.
	DiagAmbiguousRoute DiagKind = "ambiguous_route"
)

// Severity grades a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one structural defect found during resolution. Which fields
// beyond Kind/Severity/Message are set depends on Kind.
type Diagnostic struct {
	Kind     DiagKind `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`

	// ClassificationConflict and CyclicGroupHierarchy.
	Identity Identity `json:"identity,omitempty"`
	Name     string   `json:"name,omitempty"`
	Loc      Location `json:"location,omitzero"`

	// CyclicGroupHierarchy: the closed loop, first identity repeated last.
	CyclePath  []Identity `json:"cycle_path,omitempty"`
	CycleNames []string   `json:"cycle_names,omitempty"`

	// AmbiguousRoute.
	Second     Identity   `json:"second_identity,omitempty"`
	SecondName string     `json:"second_name,omitempty"`
	Method     string     `json:"method,omitempty"`
	Path       string     `json:"path,omitempty"`
	Locations  []Location `json:"locations,omitempty"`
}

func classificationConflict(d Declaration) Diagnostic {
	return Diagnostic{
		Kind:     DiagClassificationConflict,
		Severity: SeverityError,
		Message:  fmt.Sprintf("%s is declared as both an endpoint and a route group", d.Name),
		Identity: d.Identity,
		Name:     d.Name,
		Loc:      d.Loc,
	}
}

func cyclicHierarchy(start *Group, path []Identity, names []string) Diagnostic {
	return Diagnostic{
		Kind:       DiagCyclicGroupHierarchy,
		Severity:   SeverityWarning,
		Message:    fmt.Sprintf("route group hierarchy is cyclic: %s", strings.Join(names, " -> ")),
		Identity:   start.Identity,
		Name:       start.Name,
		Loc:        start.Loc,
		CyclePath:  path,
		CycleNames: names,
	}
}

func ambiguousRoute(a, b *Endpoint, method, path string) Diagnostic {
	return Diagnostic{
		Kind:     DiagAmbiguousRoute,
		Severity: SeverityWarning,
		Message: fmt.Sprintf("%s and %s both handle %s %s", a.Name, b.Name, method,
			"/"+path),
		Identity:   a.Identity,
		Name:       a.Name,
		Second:     b.Identity,
		SecondName: b.Name,
		Method:     method,
		Path:       path,
		Locations:  []Location{a.Loc, b.Loc},
	}
}
