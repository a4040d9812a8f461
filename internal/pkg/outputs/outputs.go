// Package outputs implements rules for comparison of program outputs.
package outputs

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Rule represents rule of output comparison.
type Rule string

const (
	// Exact compares outputs byte by byte after line ending normalization.
	Exact Rule = "exact"
	// Trim compares outputs without leading and trailing whitespace.
	Trim Rule = "trim"
	// Tokens compares whitespace-separated tokens.
	Tokens Rule = "tokens"
)

// Default contains rule that is used when problem does not specify one.
const Default = Trim

// ParseRule parses rule name. Empty name means default rule.
func ParseRule(name string) (Rule, error) {
	switch rule := Rule(strings.ToLower(strings.TrimSpace(name))); rule {
	case "":
		return Default, nil
	case Exact, Trim, Tokens:
		return rule, nil
	default:
		return "", fmt.Errorf("unsupported output rule: %q", name)
	}
}

// Equal returns true if actual output matches expected one.
func (r Rule) Equal(expected, actual string) bool {
	expected, actual = normalize(expected), normalize(actual)
	switch r {
	case Exact:
		return expected == actual
	case Tokens:
		return equalTokens(strings.Fields(expected), strings.Fields(actual))
	default:
		return strings.TrimSpace(expected) == strings.TrimSpace(actual)
	}
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return norm.NFC.String(s)
}

func equalTokens(lhs, rhs []string) bool {
	if len(lhs) != len(rhs) {
		return false
	}
	for i := range lhs {
		if lhs[i] != rhs[i] {
			return false
		}
	}
	return true
}
