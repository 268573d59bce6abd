package lang

func init() {
	Register(&LanguageSpec{
		Language:       JavaScript,
		FileExtensions: []string{".js", ".jsx", ".mjs"},
		FunctionNodeTypes: []string{
			"function_declaration",
			"method_definition",
		},
		ClassNodeTypes:    []string{"class_declaration"},
		ModuleNodeTypes:   []string{"program"},
		CallRegistrations: true,
	})
}
