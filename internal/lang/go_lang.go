package lang

func init() {
	Register(&LanguageSpec{
		Language:          Go,
		FileExtensions:    []string{".go"},
		FunctionNodeTypes: []string{"function_declaration", "method_declaration"},
		ClassNodeTypes:    []string{"type_declaration"},
		ModuleNodeTypes:   []string{"source_file"},
		CommentDirectives: true,
	})
}
