package validator

import (
	"specado/internal/apperr"
	"specado/internal/jsonvalue"
)

// Validate checks doc against the schema named by which, at the given
// mode, returning an ordered (depth-first, document-order) list of
// violations. A nil/empty return means the document is valid.
func Validate(doc jsonvalue.Value, which SpecType, mode Mode) []apperr.ValidationErrorDetail {
	c := &collector{}
	switch which {
	case SpecTypePrompt:
		validatePromptSpec(c, doc, mode)
	case SpecTypeProvider:
		validateProviderSpec(c, doc, mode)
	}
	return c.errs
}

// ValidateStrict is a convenience wrapper for the orchestrator's ProviderSpec
// check, which spec section 4.11 always runs at Strict regardless of the
// caller's requested mode.
func ValidateStrict(doc jsonvalue.Value, which SpecType) []apperr.ValidationErrorDetail {
	return Validate(doc, which, Strict)
}
