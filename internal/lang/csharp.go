package lang

func init() {
	Register(&LanguageSpec{
		Language:       CSharp,
		FileExtensions: []string{".cs"},
		FunctionNodeTypes: []string{
			"method_declaration",
			"local_function_statement",
		},
		ClassNodeTypes: []string{
			"class_declaration",
			"record_declaration",
		},
		ModuleNodeTypes:    []string{"compilation_unit"},
		DecoratorNodeTypes: []string{"attribute_list"},
	})
}
