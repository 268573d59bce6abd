// Package topology resolves declared route handlers and route groups into a
// flattened routing topology and reports structural defects: dual-classified
// declarations, cyclic group hierarchies, and ambiguous routes.
//
// The package is the single-threaded back half of a scan. Extraction workers
// append Declarations into a Batch concurrently; once the batch is finalized,
// Resolve runs the whole pass synchronously over in-memory data and returns
// an immutable Topology that is safe to share across readers.
package topology

import (
	"sync"

	"github.com/zeebo/xxh3"
)

// Identity is a stable 64-bit handle for one declaration, derived from its
// qualified name. The zero value means "no reference".
type Identity uint64

// None is the absent Identity.
const None Identity = 0

// IdentityOf derives the Identity for a qualified declaration name.
func IdentityOf(qualifiedName string) Identity {
	return Identity(xxh3.HashString(qualifiedName))
}

// Location points at the source of a declaration.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// RoleMarker is one role-defining criterion a declaration satisfied during
// extraction. A well-formed declaration matches at most one.
type RoleMarker string

const (
	// MarkerEndpoint marks a declaration carrying a route pattern and HTTP methods.
	MarkerEndpoint RoleMarker = "endpoint"
	// MarkerGroup marks a declaration carrying a shared path prefix.
	MarkerGroup RoleMarker = "group"
)

// Declaration is the shared input shape for both Endpoint and Group
// declarations, as produced by extraction. Which optional fields are
// meaningful depends on which role the declaration turns out to have.
type Declaration struct {
	Identity Identity
	// Name is the qualified declaration name, kept for reporting.
	Name    string
	Markers []RoleMarker
	// RawPath is the group prefix or endpoint pattern. Empty if absent.
	RawPath string
	// Parent is the declared parent group (for groups) or owning group
	// (for endpoints). None if absent.
	Parent Identity
	// Methods are the declared HTTP method names (endpoints only).
	Methods []string
	Loc     Location
}

// Group is a classified group declaration.
type Group struct {
	Identity  Identity
	Name      string
	RawPrefix string
	ParentRef Identity
	Loc       Location
}

// Endpoint is a classified endpoint declaration.
type Endpoint struct {
	Identity   Identity
	Name       string
	RawPattern string
	Methods    []string
	GroupRef   Identity
	Loc        Location
}

// Batch is the append-only collection extraction workers write into.
// Add is safe for concurrent use; Finalize is the barrier after which the
// batch is read-only and resolution may run.
type Batch struct {
	mu    sync.Mutex
	decls []Declaration
	done  bool
}

// NewBatch creates an empty Batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Add appends one declaration. Calls after Finalize are dropped.
func (b *Batch) Add(d Declaration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.decls = append(b.decls, d)
}

// Len returns the number of declarations appended so far.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.decls)
}

// Finalize seals the batch and returns its declarations in append order.
func (b *Batch) Finalize() []Declaration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done = true
	return b.decls
}
