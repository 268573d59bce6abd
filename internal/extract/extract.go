// Package extract turns parsed source trees into route declarations.
//
// Extraction is purely syntactic: it walks each file's AST for the node
// kinds the language spec names, matches the attached decorator, attribute,
// annotation, or comment-directive text against the routing conventions,
// and appends the resulting declarations to a topology.Batch. It never
// judges whether a declaration is well formed; that is resolution's job.
package extract

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"github.com/zeebo/xxh3"

	"github.com/routelab/routemap/internal/fqn"
	"github.com/routelab/routemap/internal/lang"
	"github.com/routelab/routemap/internal/parser"
	"github.com/routelab/routemap/internal/topology"
)

// DefaultCacheSize is the default number of parsed trees kept across scans.
const DefaultCacheSize = 512

// cachedTree reference-counts a parsed tree. Eviction from the cache frees
// the tree-sitter memory only once no worker holds a reference; until then
// the evicted tree stays valid and the last release closes it.
type cachedTree struct {
	hash uint64
	tree *tree_sitter.Tree

	mu      sync.Mutex
	refs    int
	evicted bool
}

func (ct *cachedTree) acquire() {
	ct.mu.Lock()
	ct.refs++
	ct.mu.Unlock()
}

func (ct *cachedTree) release() {
	ct.mu.Lock()
	ct.refs--
	closeNow := ct.evicted && ct.refs == 0
	ct.mu.Unlock()
	if closeNow {
		ct.tree.Close()
	}
}

func (ct *cachedTree) evict() {
	ct.mu.Lock()
	ct.evicted = true
	closeNow := ct.refs == 0
	ct.mu.Unlock()
	if closeNow {
		ct.tree.Close()
	}
}

// Extractor extracts route declarations from source files. Parsed trees are
// kept in an LRU cache keyed by file path so repeated scans of an unchanged
// file skip the parse. File is safe for concurrent use: a tree another
// worker evicts mid-walk is closed only when its last reference is released.
type Extractor struct {
	project string

	mu    sync.Mutex // serializes cache lookups with acquire
	trees *lru.Cache[string, *cachedTree]
}

// New creates an Extractor for a project. cacheSize <= 0 selects
// DefaultCacheSize.
func New(project string, cacheSize int) (*Extractor, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	trees, err := lru.NewWithEvict(cacheSize, func(_ string, ct *cachedTree) {
		ct.evict()
	})
	if err != nil {
		return nil, fmt.Errorf("tree cache: %w", err)
	}
	return &Extractor{project: project, trees: trees}, nil
}

// Close releases all cached trees.
func (e *Extractor) Close() {
	e.trees.Purge()
}

// File extracts route declarations from one source file and appends them to
// the batch. Files in unsupported languages are skipped. Returns the number
// of declarations appended.
func (e *Extractor) File(relPath string, source []byte, batch *topology.Batch) (int, error) {
	spec := lang.ForExtension(filepath.Ext(relPath))
	if spec == nil {
		return 0, nil
	}

	ct, err := e.tree(spec.Language, relPath, source)
	if err != nil {
		return 0, err
	}
	defer ct.release()
	root := ct.tree.RootNode()

	n := 0
	if spec.CommentDirectives {
		n += e.extractDirectives(spec, relPath, source, root, batch)
	}
	if spec.CallRegistrations {
		n += e.extractRegistrations(relPath, source, root, batch)
	}
	if len(spec.DecoratorNodeTypes) > 0 {
		n += e.walkDeclarations(spec, relPath, source, root, topology.None, batch)
	}
	return n, nil
}

// tree returns the parse tree for a file with a reference held; the caller
// must release it. The cached tree is reused when the content hash is
// unchanged. Acquiring under e.mu keeps a concurrent Add from evicting and
// closing the tree between the lookup and the acquire.
func (e *Extractor) tree(l lang.Language, relPath string, source []byte) (*cachedTree, error) {
	hash := xxh3.Hash(source)

	e.mu.Lock()
	if ct, ok := e.trees.Get(relPath); ok && ct.hash == hash {
		ct.acquire()
		e.mu.Unlock()
		return ct, nil
	}
	e.mu.Unlock()

	tree, err := parser.Parse(l, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	ct := &cachedTree{hash: hash, tree: tree, refs: 1}

	e.mu.Lock()
	e.trees.Add(relPath, ct)
	e.mu.Unlock()
	return ct, nil
}

// walkDeclarations recursively visits class and function declaration nodes,
// carrying the identity of the nearest enclosing group so handler methods
// inside an annotated class inherit it as their parent.
func (e *Extractor) walkDeclarations(spec *lang.LanguageSpec, relPath string, src []byte, node *tree_sitter.Node, enclosing topology.Identity, batch *topology.Batch) int {
	n := 0
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch kind := child.Kind(); {
		case kindIn(spec.ClassNodeTypes, kind):
			groupID, added := e.classDecl(spec, relPath, src, child, enclosing, batch)
			n += added
			next := enclosing
			if groupID != topology.None {
				next = groupID
			}
			n += e.walkDeclarations(spec, relPath, src, child, next, batch)
		case kindIn(spec.FunctionNodeTypes, kind):
			n += e.funcDecl(spec, relPath, src, child, enclosing, batch)
			n += e.walkDeclarations(spec, relPath, src, child, enclosing, batch)
		default:
			n += e.walkDeclarations(spec, relPath, src, child, enclosing, batch)
		}
	}
	return n
}

// classDecl emits a group declaration for an annotated class. Returns the
// group identity (None if the class declares no group) and the number of
// declarations appended.
func (e *Extractor) classDecl(spec *lang.LanguageSpec, relPath string, src []byte, node *tree_sitter.Node, enclosing topology.Identity, batch *topology.Batch) (topology.Identity, int) {
	name := nodeName(node, src)
	if name == "" {
		return topology.None, 0
	}
	ann := annotationText(spec, node, src)
	if ann == "" {
		return topology.None, 0
	}
	prefix, ok := classGroup(spec.Language, ann)
	if !ok {
		return topology.None, 0
	}

	id := groupIdentity(name)
	batch.Add(topology.Declaration{
		Identity: id,
		Name:     fqn.Compute(e.project, relPath, name),
		Markers:  []topology.RoleMarker{topology.MarkerGroup},
		RawPath:  prefix,
		Parent:   enclosing,
		Loc:      nodeLoc(relPath, node),
	})
	return id, 1
}

// funcDecl emits an endpoint declaration for an annotated function or method.
func (e *Extractor) funcDecl(spec *lang.LanguageSpec, relPath string, src []byte, node *tree_sitter.Node, enclosing topology.Identity, batch *topology.Batch) int {
	name := nodeName(node, src)
	if name == "" {
		return 0
	}
	ann := annotationText(spec, node, src)
	if ann == "" {
		return 0
	}
	path, methods, ok := endpointRoute(spec.Language, ann)
	if !ok {
		return 0
	}

	loc := nodeLoc(relPath, node)
	qn := fqn.Compute(e.project, relPath, name)
	batch.Add(topology.Declaration{
		Identity: endpointIdentity(qn, loc.Line),
		Name:     qn,
		Markers:  []topology.RoleMarker{topology.MarkerEndpoint},
		RawPath:  path,
		Parent:   enclosing,
		Methods:  methods,
		Loc:      loc,
	})
	return 1
}

// groupIdentity derives a group's identity from its declared name alone, so
// a parent reference from another file resolves to the same identity.
func groupIdentity(name string) topology.Identity {
	return topology.IdentityOf("group:" + name)
}

// endpointIdentity includes the declaration line so overloaded or shadowed
// handler names stay distinct.
func endpointIdentity(qualifiedName string, line int) topology.Identity {
	return topology.IdentityOf(qualifiedName + "#" + strconv.Itoa(line))
}

// annotationText joins the text of all decorator-kind nodes attached to a
// declaration. Grammars disagree about where these live: Python wraps the
// definition in a decorated_definition, C# and TypeScript attach them as
// children, Java nests annotations inside a modifiers child, and TypeScript
// export statements put the decorator before the declaration as a sibling.
func annotationText(spec *lang.LanguageSpec, node *tree_sitter.Node, src []byte) string {
	var parts []string

	if p := node.Parent(); p != nil && p.Kind() == "decorated_definition" {
		for i := uint(0); i < p.ChildCount(); i++ {
			if c := p.Child(i); c != nil && kindIn(spec.DecoratorNodeTypes, c.Kind()) {
				parts = append(parts, parser.NodeText(c, src))
			}
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		if kindIn(spec.DecoratorNodeTypes, c.Kind()) {
			parts = append(parts, parser.NodeText(c, src))
			continue
		}
		if c.Kind() == "modifiers" {
			for j := uint(0); j < c.ChildCount(); j++ {
				if m := c.Child(j); m != nil && kindIn(spec.DecoratorNodeTypes, m.Kind()) {
					parts = append(parts, parser.NodeText(m, src))
				}
			}
		}
	}

	for s := node.PrevNamedSibling(); s != nil && kindIn(spec.DecoratorNodeTypes, s.Kind()); s = s.PrevNamedSibling() {
		parts = append(parts, parser.NodeText(s, src))
	}

	return joinUnique(parts)
}

// nodeName returns the declared name of a class or function node.
func nodeName(node *tree_sitter.Node, src []byte) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return parser.NodeText(n, src)
	}
	return ""
}

func nodeLoc(relPath string, node *tree_sitter.Node) topology.Location {
	return topology.Location{File: relPath, Line: int(node.StartPosition().Row) + 1}
}

func kindIn(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// joinUnique concatenates annotation texts, dropping duplicates picked up
// by both the child and the sibling scan.
func joinUnique(parts []string) string {
	seen := make(map[string]bool, len(parts))
	var out []string
	for _, p := range parts {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}
