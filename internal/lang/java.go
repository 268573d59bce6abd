package lang

func init() {
	Register(&LanguageSpec{
		Language:          Java,
		FileExtensions:    []string{".java"},
		FunctionNodeTypes: []string{"method_declaration"},
		ClassNodeTypes: []string{
			"class_declaration",
			"interface_declaration",
		},
		ModuleNodeTypes:    []string{"program"},
		DecoratorNodeTypes: []string{"marker_annotation", "annotation"},
	})
}
