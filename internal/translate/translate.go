// Package translate implements the translate orchestrator (C11): the
// single entry point that wires the validator, pre-validator, transformer,
// mapper, conflict resolver, and flag applicator into one deterministic
// pipeline sharing a lossiness tracker, then hands the result to the
// assembler.
package translate

import (
	"encoding/json"
	"fmt"
	"time"

	"specado/internal/apperr"
	"specado/internal/assembler"
	"specado/internal/conflict"
	"specado/internal/flags"
	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/mapper"
	"specado/internal/prevalidate"
	"specado/internal/specs"
	"specado/internal/strictness"
	"specado/internal/transform"
	"specado/internal/validator"
)

// Request is translate()'s input (spec section 6.1). PromptSpec and
// ProviderSpec are raw JSON so the caller (CLI or HTTP handler) never has
// to pre-parse them; ValidatorMode governs how strictly the PromptSpec is
// checked before translation and defaults to validator.Strict when empty —
// the ProviderSpec is always checked at validator.Strict regardless, since
// it is operator-authored configuration rather than a per-request payload.
// A numeric range violation in the PromptSpec (rule prompt_spec.range) is
// not a validation failure here: the pre-validator records it as a Clamp
// item, adjudicated under the request's strictness mode.
type Request struct {
	PromptSpec         json.RawMessage
	ProviderSpec       json.RawMessage
	ModelID            string
	ValidatorMode      validator.Mode
	StrictModeOverride strictness.Mode // optional; overrides PromptSpec.strict_mode (spec section 6.1)
}

// Translate runs one PromptSpec through one ProviderSpec model and returns
// the assembled result, or an *apperr.Error identifying why it could not.
// It always validates and decodes ProviderSpec from raw bytes; callers that
// already hold a validated *specs.ProviderSpec (e.g. the server's
// cache-backed handler) should call TranslateWithProvider instead to skip
// that repeated work.
func Translate(req Request) (*assembler.Result, error) {
	validateStart := time.Now()
	providerDoc, err := jsonvalue.Parse(req.ProviderSpec)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "provider_spec is not valid JSON", err)
	}
	if errs := validator.ValidateStrict(providerDoc, validator.SpecTypeProvider); len(errs) > 0 {
		return nil, apperr.NewValidation(errs)
	}
	provider, err := specs.DecodeProviderSpec(req.ProviderSpec)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "provider_spec passed validation but failed to decode", err)
	}
	providerValidateMicros := time.Since(validateStart).Microseconds()

	return translateWithProvider(req, provider, providerValidateMicros)
}

// TranslateWithProvider runs the pipeline against an already-validated
// ProviderSpec, skipping its (Strict) schema validation and decode. The
// server's cache-backed handler uses this after a SpecCache hit.
func TranslateWithProvider(req Request, provider *specs.ProviderSpec) (*assembler.Result, error) {
	return translateWithProvider(req, provider, 0)
}

func translateWithProvider(req Request, provider *specs.ProviderSpec, providerValidateMicros int64) (*assembler.Result, error) {
	start := time.Now()
	var timings assembler.StageTimings
	timings.Validator = providerValidateMicros

	promptValidateStart := time.Now()
	promptDoc, err := jsonvalue.Parse(req.PromptSpec)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "prompt_spec is not valid JSON", err)
	}
	promptMode := req.ValidatorMode
	if promptMode == "" {
		promptMode = validator.Strict
	}
	var promptErrs []apperr.ValidationErrorDetail
	for _, e := range validator.Validate(promptDoc, validator.SpecTypePrompt, promptMode) {
		if e.RuleID != "prompt_spec.range" {
			promptErrs = append(promptErrs, e)
		}
	}
	if len(promptErrs) > 0 {
		return nil, apperr.NewValidation(promptErrs)
	}
	timings.Validator += time.Since(promptValidateStart).Microseconds()

	prompt, err := specs.DecodePromptSpec(req.PromptSpec)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "prompt_spec passed validation but failed to decode", err)
	}

	model, ok := provider.FindModel(req.ModelID)
	if !ok {
		return nil, apperr.New(apperr.KindModelNotFound, fmt.Sprintf("no model with id or alias %q", req.ModelID)).WithPath("model_id")
	}

	mode := prompt.StrictMode
	if mode == "" {
		mode = strictness.Warn
	}
	if req.StrictModeOverride != "" {
		mode = req.StrictModeOverride
	}

	uniform, err := prompt.ToValue()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to build the uniform working value", err)
	}
	payload := jsonvalue.NewObject()

	tr := lossiness.NewTracker()
	required := requiredCanonicalPaths(prompt.ModelClass)

	preStart := time.Now()
	plan := prevalidate.Run(prompt, model, mode, &uniform, tr)
	timings.PreValidate = time.Since(preStart).Microseconds()
	if err := checkFatal(tr, mode, "pre-validation"); err != nil {
		return nil, err
	}

	xformStart := time.Now()
	if err := transform.Run(model.TransformRules, &uniform, tr); err != nil {
		return nil, err
	}
	timings.Transform = time.Since(xformStart).Microseconds()
	if err := checkFatal(tr, mode, "transformation"); err != nil {
		return nil, err
	}

	mapStart := time.Now()
	if err := mapper.Run(uniform, model, required, &payload, tr); err != nil {
		return nil, err
	}
	timings.Map = time.Since(mapStart).Microseconds()
	if err := checkFatal(tr, mode, "path mapping"); err != nil {
		return nil, err
	}

	resolveStart := time.Now()
	if err := conflict.Run(model, &payload, tr); err != nil {
		return nil, err
	}
	timings.Resolve = time.Since(resolveStart).Microseconds()
	if err := checkFatal(tr, mode, "conflict resolution"); err != nil {
		return nil, err
	}

	flagsStart := time.Now()
	if err := flags.Run(prompt, model, plan, &payload, tr); err != nil {
		return nil, err
	}
	timings.Flags = time.Since(flagsStart).Microseconds()
	if err := checkFatal(tr, mode, "flag application"); err != nil {
		return nil, err
	}

	result := assembler.Assemble(payload, tr, assembler.Metadata{
		ProviderName:         provider.Provider.Name,
		ModelID:              model.ID,
		StrictMode:           mode,
		DurationMicros:       time.Since(start).Microseconds(),
		PipelineStageTimings: timings,
	})
	return &result, nil
}

// checkFatal aborts translation with a Strictness error carrying the
// tracker's snapshot the moment any recorded item has been escalated to
// Error severity under a strict-mode-fatal code (spec section 4.4, 7).
// It aborts only when mode is Strict; under Warn and Coerce, Error-severity
// items such as Unsupported are reported without aborting.
func checkFatal(tr *lossiness.Tracker, mode strictness.Mode, stage string) error {
	if mode != strictness.Strict || !tr.HasFatal(strictness.FatalCodes()) {
		return nil
	}
	return apperr.New(apperr.KindStrictness, fmt.Sprintf("strict mode aborted after %s", stage)).WithLossiness(tr.Items())
}

// requiredCanonicalPaths reports, for each canonical PromptSpec path,
// whether prompt.model_class makes it mandatory — currently just
// "messages" for every chat-family class (spec section 3.1, 4.1).
func requiredCanonicalPaths(mc specs.ModelClass) map[string]bool {
	required := map[string]bool{}
	if mc.IsChatFamily() {
		required[specs.PathMessages] = true
	}
	return required
}
