// Package lang registers the languages routemap can extract route
// declarations from. Only languages with a declarative routing convention
// (attributes, decorators, annotations, comment directives, or registration
// calls) are supported; anything else is skipped during discovery.
package lang

// Language represents a supported programming language.
type Language string

const (
	CSharp     Language = "c-sharp"
	Python     Language = "python"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	JavaScript Language = "javascript"
	Java       Language = "java"
	Go         Language = "go"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{CSharp, Python, TypeScript, TSX, JavaScript, Java, Go}
}

// LanguageSpec defines the tree-sitter node kinds routemap walks for route
// declarations in a language.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string
	// FunctionNodeTypes are endpoint declaration candidates.
	FunctionNodeTypes []string
	// ClassNodeTypes are group declaration candidates.
	ClassNodeTypes  []string
	ModuleNodeTypes []string
	// DecoratorNodeTypes are the decorator/annotation/attribute node kinds
	// whose text is matched against the routing conventions.
	DecoratorNodeTypes []string
	// CommentDirectives enables //route: and //routegroup: comment
	// directives on declarations (Go).
	CommentDirectives bool
	// CallRegistrations enables registration-call scanning, e.g. Express's
	// app.get("/path", handler), for languages without decorators.
	CallRegistrations bool
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".cs").
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}
