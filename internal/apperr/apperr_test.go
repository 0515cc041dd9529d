package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specado/internal/lossiness"
)

func TestErrorMessageWithoutPath(t *testing.T) {
	err := New(KindInternal, "boom")
	assert.Equal(t, "Internal: boom", err.Error())
}

func TestErrorMessageWithPath(t *testing.T) {
	err := New(KindValidation, "bad field").WithPath("sampling.temperature")
	assert.Equal(t, "Validation: bad field (path sampling.temperature)", err.Error())
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(KindInternal, "wrapped", cause)
	assert.Same(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestWithDetailsAndLossinessChain(t *testing.T) {
	items := []lossiness.Item{{Code: lossiness.CodeClamp, Severity: lossiness.SeverityWarning}}
	err := New(KindStrictness, "aborted").
		WithDetails(map[string]any{"reason": "out of range"}).
		WithLossiness(items)

	assert.Equal(t, "out of range", err.Details["reason"])
	require.Len(t, err.Lossiness, 1)
	assert.Equal(t, lossiness.CodeClamp, err.Lossiness[0].Code)
}

func TestNewValidationUsesFirstErrorAsMessage(t *testing.T) {
	err := NewValidation([]ValidationErrorDetail{
		{Path: "model_class", Message: "model_class is required", RuleID: "required"},
		{Path: "messages", Message: "messages must not be empty", RuleID: "min_items"},
	})
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "model_class is required", err.Message)
	errs, ok := err.Details["errors"].([]any)
	require.True(t, ok)
	assert.Len(t, errs, 2)
}

func TestNewValidationWithNoErrorsUsesGenericMessage(t *testing.T) {
	err := NewValidation(nil)
	assert.Equal(t, "document failed schema validation", err.Message)
}
