// Package validator implements the schema validator (C2): Basic, Partial,
// and Strict checks over a PromptSpec or ProviderSpec document, producing
// an ordered, depth-first list of violations rather than failing on the
// first one.
package validator

import "specado/internal/apperr"

// Mode is one of the three validation depths (spec section 4.2).
type Mode string

const (
	Basic   Mode = "Basic"
	Partial Mode = "Partial"
	Strict  Mode = "Strict"
)

// ParseMode parses the lowercase wire-format mode used by the validate
// entry point (spec section 6.3).
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "basic":
		return Basic, true
	case "partial":
		return Partial, true
	case "strict":
		return Strict, true
	default:
		return Basic, false
	}
}

// atLeast reports whether m includes the checks of floor.
func atLeast(m, floor Mode) bool {
	rank := map[Mode]int{Basic: 0, Partial: 1, Strict: 2}
	return rank[m] >= rank[floor]
}

// SpecType selects which document shape Validate checks.
type SpecType string

const (
	SpecTypePrompt   SpecType = "prompt"
	SpecTypeProvider SpecType = "provider"
)

// collector accumulates ordered ValidationErrorDetail entries in
// depth-first document order, since callers build it by walking fields in
// their declared order.
type collector struct {
	errs []apperr.ValidationErrorDetail
}

func (c *collector) add(path, message, ruleID string, expected, actual any) {
	c.errs = append(c.errs, apperr.ValidationErrorDetail{
		Path:     path,
		Message:  message,
		RuleID:   ruleID,
		Expected: expected,
		Actual:   actual,
	})
}

func joinPath(base, suffix string) string {
	if base == "" {
		return suffix
	}
	return base + "." + suffix
}
