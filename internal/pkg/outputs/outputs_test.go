package outputs

import "testing"

func TestParseRule(t *testing.T) {
	tests := []struct {
		Name string
		Rule Rule
	}{
		{"", Trim},
		{"exact", Exact},
		{" Trim ", Trim},
		{"TOKENS", Tokens},
	}
	for _, test := range tests {
		rule, err := ParseRule(test.Name)
		if err != nil {
			t.Fatal("Error:", err)
		}
		if rule != test.Rule {
			t.Fatalf("Expected %q, got %q", test.Rule, rule)
		}
	}
	if _, err := ParseRule("fuzzy"); err == nil {
		t.Fatal("Expected error for unknown rule")
	}
}

func TestRuleEqual(t *testing.T) {
	tests := []struct {
		Rule     Rule
		Expected string
		Actual   string
		Equal    bool
	}{
		{Exact, "3\n", "3\n", true},
		{Exact, "3\r\n", "3\n", true},
		{Exact, "3\n", "3", false},
		{Trim, "3", "3\n", true},
		{Trim, "  3 \n\n", "3", true},
		{Trim, "1 2", "1  2", false},
		{Trim, "3", "4", false},
		{Tokens, "1 2\n3", "1\n2 3\n", true},
		{Tokens, "1 2", "1 2 3", false},
		{Tokens, "", "\n", true},
		// Composed and decomposed forms of the same letter.
		{Exact, "caf\u00e9", "cafe\u0301", true},
	}
	for _, test := range tests {
		if equal := test.Rule.Equal(test.Expected, test.Actual); equal != test.Equal {
			t.Fatalf(
				"Rule %q for %q and %q: expected %v, got %v",
				test.Rule, test.Expected, test.Actual, test.Equal, equal,
			)
		}
	}
}
