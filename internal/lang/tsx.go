package lang

func init() {
	Register(&LanguageSpec{
		Language:       TSX,
		FileExtensions: []string{".tsx"},
		FunctionNodeTypes: []string{
			"function_declaration",
			"method_definition",
		},
		ClassNodeTypes: []string{
			"class_declaration",
			"abstract_class_declaration",
		},
		ModuleNodeTypes:    []string{"program"},
		DecoratorNodeTypes: []string{"decorator"},
		CallRegistrations:  true,
	})
}
