package lang

func init() {
	Register(&LanguageSpec{
		Language:           Python,
		FileExtensions:     []string{".py"},
		FunctionNodeTypes:  []string{"function_definition"},
		ClassNodeTypes:     []string{"class_definition"},
		ModuleNodeTypes:    []string{"module"},
		DecoratorNodeTypes: []string{"decorator"},
	})
}
