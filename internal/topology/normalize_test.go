package topology

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"root", "/", ""},
		{"plain", "/users", "users"},
		{"trailing", "/users/", "users"},
		{"case_folded", "/Users/Active", "users/active"},
		{"brace_param", "/users/{id}", "users/*"},
		{"typed_param", "/users/{id:int}", "users/*"},
		{"catch_all", "/files/{*rest}", "files/*"},
		{"double_catch_all", "/files/{**slug}", "files/*"},
		{"colon_param", "/users/:id/orders", "users/*/orders"},
		{"mixed", "/Api/V1/{tenantId:guid}/items/:itemId/", "api/v1/*/items/*"},
		{"nested_braces", "/a/{b{c}}", "a/*"},
		{"doubled_braces", "/files/{{literal}}", "files/*"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizePath(tc.in)
			if got != tc.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizePathIdempotent(t *testing.T) {
	inputs := []string{
		"", "/", "/users", "/Users/{id:int}", "/a/:b/c", "/files/{*rest}",
		"///odd///", "/already/*/normal", "/a/{b{c}}", "/files/{{literal}}",
	}
	for _, in := range inputs {
		once := NormalizePath(in)
		twice := NormalizePath(once)
		if once != twice {
			t.Errorf("NormalizePath not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizePathParameterShapeEquivalence(t *testing.T) {
	a := NormalizePath("/Users/{id:int}")
	b := NormalizePath("/users/{name}")
	if a != b {
		t.Errorf("expected %q == %q", a, b)
	}
}
