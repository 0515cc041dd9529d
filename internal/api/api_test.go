package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specado/internal/apperr"
	"specado/internal/cache"
)

const testProviderSpec = `{
	"spec_version": "1.0",
	"provider": {"name": "acme"},
	"models": [{
		"id": "acme-large",
		"input_modes": {"messages": true, "single_text": false, "images": false},
		"tooling": {"tools_supported": false, "parallel_tool_calls_default": false, "can_disable_parallel_tool_calls": false},
		"json_output": {"native_param": true},
		"mappings": {
			"paths": {"model_class": "$.model", "messages": "$.messages"}
		}
	}]
}`

const testPromptSpec = `{
	"model_class": "Chat",
	"messages": [{"role": "User", "content": "hi"}]
}`

func TestTranslateHappyPath(t *testing.T) {
	resp, errResp := Translate(TranslateRequest{
		PromptSpec:   json.RawMessage(testPromptSpec),
		ProviderSpec: json.RawMessage(testProviderSpec),
		ModelID:      "acme-large",
	})
	require.Nil(t, errResp)
	require.NotNil(t, resp)
	assert.Equal(t, "acme", resp.Metadata.ProviderName)
	assert.Equal(t, "acme-large", resp.Metadata.ModelID)
	assert.True(t, resp.ProviderRequestJSON.IsObject())
}

func TestTranslateInvalidStrictModeString(t *testing.T) {
	resp, errResp := Translate(TranslateRequest{
		PromptSpec:   json.RawMessage(testPromptSpec),
		ProviderSpec: json.RawMessage(testProviderSpec),
		ModelID:      "acme-large",
		StrictMode:   "bogus",
	})
	require.Nil(t, resp)
	require.NotNil(t, errResp)
	assert.Equal(t, apperr.KindValidation, errResp.Error.Kind)
	assert.Equal(t, "strict_mode", errResp.Error.Path)
}

func TestTranslatePropagatesPipelineError(t *testing.T) {
	resp, errResp := Translate(TranslateRequest{
		PromptSpec:   json.RawMessage(testPromptSpec),
		ProviderSpec: json.RawMessage(testProviderSpec),
		ModelID:      "does-not-exist",
	})
	require.Nil(t, resp)
	require.NotNil(t, errResp)
	assert.Equal(t, apperr.KindModelNotFound, errResp.Error.Kind)
}

func TestNewErrorResponseFromAppErr(t *testing.T) {
	appErr := apperr.New(apperr.KindValidation, "bad thing").WithPath("foo.bar")
	resp := NewErrorResponse(appErr)
	assert.Equal(t, apperr.KindValidation, resp.Error.Kind)
	assert.Equal(t, "bad thing", resp.Error.Message)
	assert.Equal(t, "foo.bar", resp.Error.Path)
	assert.Nil(t, resp.Lossiness)
}

func TestNewErrorResponseFromGenericErrorFallsBackToInternal(t *testing.T) {
	resp := NewErrorResponse(errors.New("boom"))
	assert.Equal(t, apperr.KindInternal, resp.Error.Kind)
	assert.Equal(t, "boom", resp.Error.Message)
	assert.Empty(t, resp.Error.Path)
	assert.Nil(t, resp.Lossiness)
}

func TestNewErrorResponsePopulatesLossinessWhenPresent(t *testing.T) {
	prompt := `{
		"model_class": "Chat",
		"messages": [{"role": "User", "content": "hi"}],
		"sampling": {"temperature": 5}
	}`
	_, errResp := Translate(TranslateRequest{
		PromptSpec:   json.RawMessage(prompt),
		ProviderSpec: json.RawMessage(testProviderSpec),
		ModelID:      "acme-large",
		StrictMode:   "Strict",
	})
	require.NotNil(t, errResp)
	assert.Equal(t, apperr.KindStrictness, errResp.Error.Kind)
	require.NotNil(t, errResp.Lossiness)
	assert.NotEmpty(t, errResp.Lossiness.Items)
	assert.Greater(t, errResp.Lossiness.Summary.Total, 0)
}

func TestTranslateCachedMissThenHit(t *testing.T) {
	c, err := cache.NewLRUCache(4)
	require.NoError(t, err)
	ctx := context.Background()

	key := cache.KeyFor([]byte(testProviderSpec))
	_, hit, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, hit)

	req := TranslateRequest{
		PromptSpec:   json.RawMessage(testPromptSpec),
		ProviderSpec: json.RawMessage(testProviderSpec),
		ModelID:      "acme-large",
	}

	resp, errResp := TranslateCached(ctx, req, c)
	require.Nil(t, errResp)
	require.NotNil(t, resp)
	assert.Equal(t, "acme", resp.Metadata.ProviderName)

	_, hit, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, hit, "a successful miss populates the cache")

	resp2, errResp2 := TranslateCached(ctx, req, c)
	require.Nil(t, errResp2)
	require.NotNil(t, resp2)
	assert.Equal(t, "acme", resp2.Metadata.ProviderName)
}

func TestTranslateCachedInvalidProviderSpecOnMiss(t *testing.T) {
	c, err := cache.NewLRUCache(4)
	require.NoError(t, err)
	ctx := context.Background()

	_, errResp := TranslateCached(ctx, TranslateRequest{
		PromptSpec:   json.RawMessage(testPromptSpec),
		ProviderSpec: json.RawMessage(`{"spec_version": "1.0"}`),
		ModelID:      "acme-large",
	}, c)
	require.NotNil(t, errResp)
	assert.Equal(t, apperr.KindValidation, errResp.Error.Kind)
}

func TestTranslateCachedInvalidStrictModeString(t *testing.T) {
	c, err := cache.NewLRUCache(4)
	require.NoError(t, err)
	ctx := context.Background()

	_, errResp := TranslateCached(ctx, TranslateRequest{
		PromptSpec:   json.RawMessage(testPromptSpec),
		ProviderSpec: json.RawMessage(testProviderSpec),
		ModelID:      "acme-large",
		StrictMode:   "nonsense",
	}, c)
	require.NotNil(t, errResp)
	assert.Equal(t, apperr.KindValidation, errResp.Error.Kind)
	assert.Equal(t, "strict_mode", errResp.Error.Path)
}

func TestValidatePromptSpec(t *testing.T) {
	resp, err := Validate(ValidateRequest{
		Spec:     json.RawMessage(testPromptSpec),
		SpecType: "prompt",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Errors)
}

func TestValidateProviderSpec(t *testing.T) {
	resp, err := Validate(ValidateRequest{
		Spec:     json.RawMessage(testProviderSpec),
		SpecType: "provider",
		Mode:     "strict",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
}

func TestValidateDefaultsToBasicMode(t *testing.T) {
	resp, err := Validate(ValidateRequest{
		Spec:     json.RawMessage(`{"model_class": "Chat", "messages": [{"role": "User", "content": "hi"}]}`),
		SpecType: "prompt",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
}

func TestValidateRejectsUnknownSpecType(t *testing.T) {
	_, err := Validate(ValidateRequest{
		Spec:     json.RawMessage(testPromptSpec),
		SpecType: "bogus",
	})
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
}

func TestValidateRejectsUnknownModeString(t *testing.T) {
	_, err := Validate(ValidateRequest{
		Spec:     json.RawMessage(testPromptSpec),
		SpecType: "prompt",
		Mode:     "nonsense",
	})
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
}

func TestValidateRejectsInvalidJSON(t *testing.T) {
	_, err := Validate(ValidateRequest{
		Spec:     json.RawMessage("not json"),
		SpecType: "prompt",
	})
	require.Error(t, err)
}
