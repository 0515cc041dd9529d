// Package api defines the §6 wire request/response shapes and the shared
// handler logic the HTTP server and CLI both call through, so the two
// surfaces can never drift on how a request is decoded or a result is
// rendered.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"specado/internal/apperr"
	"specado/internal/assembler"
	"specado/internal/cache"
	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/specs"
	"specado/internal/strictness"
	"specado/internal/translate"
	"specado/internal/validator"
)

// TranslateRequest is the §6.1 request body.
type TranslateRequest struct {
	PromptSpec   json.RawMessage `json:"prompt_spec"`
	ProviderSpec json.RawMessage `json:"provider_spec"`
	ModelID      string          `json:"model_id"`
	StrictMode   string          `json:"strict_mode,omitempty"`
}

// LossinessItemWire is one §3.3/§6.2 lossiness item on the wire.
type LossinessItemWire struct {
	Code          lossiness.Code          `json:"code"`
	Path          string                  `json:"path"`
	Message       string                  `json:"message"`
	Before        *jsonvalue.Value        `json:"before,omitempty"`
	After         *jsonvalue.Value        `json:"after,omitempty"`
	Severity      lossiness.Severity      `json:"severity"`
	OperationType lossiness.OperationType `json:"operation_type,omitempty"`
	Metadata      map[string]string       `json:"metadata,omitempty"`
	TimingMicros  *int64                  `json:"timing_micros,omitempty"`
}

// LossinessSummaryWire is §3.3's summary object.
type LossinessSummaryWire struct {
	BySeverity  map[lossiness.Severity]int `json:"by_severity"`
	ByCode      map[lossiness.Code]int     `json:"by_code"`
	Total       int                        `json:"total"`
	MaxSeverity lossiness.Severity         `json:"max_severity"`
}

// LossinessWire bundles the items and summary the way both success and
// failure responses embed them (spec section 6.1).
type LossinessWire struct {
	Items   []LossinessItemWire  `json:"items"`
	Summary LossinessSummaryWire `json:"summary"`
}

func newLossinessWire(items []lossiness.Item, summary lossiness.Summary) LossinessWire {
	wireItems := make([]LossinessItemWire, len(items))
	for i, it := range items {
		wireItems[i] = LossinessItemWire{
			Code:          it.Code,
			Path:          it.Path,
			Message:       it.Message,
			Before:        it.Before,
			After:         it.After,
			Severity:      it.Severity,
			OperationType: it.OperationType,
			Metadata:      it.Metadata,
			TimingMicros:  it.TimingMicros,
		}
	}
	return LossinessWire{
		Items: wireItems,
		Summary: LossinessSummaryWire{
			BySeverity:  summary.BySeverity,
			ByCode:      summary.ByCode,
			Total:       summary.Total,
			MaxSeverity: summary.MaxSeverity,
		},
	}
}

// MetadataWire is §6.1's "metadata" object.
type MetadataWire struct {
	ProviderName         string                 `json:"provider_name"`
	ModelID              string                 `json:"model_id"`
	StrictMode           strictness.Mode        `json:"strict_mode"`
	DurationMicros       int64                  `json:"duration_micros"`
	PipelineStageTimings assembler.StageTimings `json:"pipeline_stage_timings"`
}

// TranslateResponse is the §6.1 success body.
type TranslateResponse struct {
	ProviderRequestJSON jsonvalue.Value `json:"provider_request_json"`
	Lossiness           LossinessWire   `json:"lossiness"`
	Metadata            MetadataWire    `json:"metadata"`
}

// ErrorWire is the §7/§6.1 failure error object.
type ErrorWire struct {
	Kind    apperr.Kind    `json:"kind"`
	Message string         `json:"message"`
	Path    string         `json:"path,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the §6.1 failure body: the error plus whatever partial
// lossiness items had accumulated before the pipeline aborted.
type ErrorResponse struct {
	Error     ErrorWire      `json:"error"`
	Lossiness *LossinessWire `json:"lossiness,omitempty"`
}

// NewErrorResponse renders err (expected to be, or wrap, an *apperr.Error)
// into the §6.1 failure shape.
func NewErrorResponse(err error) ErrorResponse {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return ErrorResponse{Error: ErrorWire{Kind: apperr.KindInternal, Message: err.Error()}}
	}
	resp := ErrorResponse{Error: ErrorWire{
		Kind:    appErr.Kind,
		Message: appErr.Message,
		Path:    appErr.Path,
		Details: appErr.Details,
	}}
	if len(appErr.Lossiness) > 0 {
		summary := summarize(appErr.Lossiness)
		lw := newLossinessWire(appErr.Lossiness, summary)
		resp.Lossiness = &lw
	}
	return resp
}

func summarize(items []lossiness.Item) lossiness.Summary {
	s := lossiness.Summary{
		BySeverity:  map[lossiness.Severity]int{},
		ByCode:      map[lossiness.Code]int{},
		Total:       len(items),
		MaxSeverity: lossiness.SeverityNone,
	}
	rank := map[lossiness.Severity]int{lossiness.SeverityInfo: 1, lossiness.SeverityWarning: 2, lossiness.SeverityError: 3}
	best := 0
	for _, it := range items {
		s.BySeverity[it.Severity]++
		s.ByCode[it.Code]++
		if r := rank[it.Severity]; r > best {
			best = r
			s.MaxSeverity = it.Severity
		}
	}
	return s
}

// ValidateRequest is the §6.3 request body.
type ValidateRequest struct {
	Spec     json.RawMessage `json:"spec"`
	SpecType string          `json:"spec_type"`
	Mode     string          `json:"mode,omitempty"`
}

// ValidateResponse is the §6.3 response body.
type ValidateResponse struct {
	Valid  bool                            `json:"valid"`
	Errors []apperr.ValidationErrorDetail `json:"errors"`
}

// Translate runs the translation pipeline for req and renders either a
// TranslateResponse or an ErrorResponse, used identically by the HTTP
// handler and the CLI's translate command.
func Translate(req TranslateRequest) (*TranslateResponse, *ErrorResponse) {
	var override strictness.Mode
	if req.StrictMode != "" {
		mode, ok := strictness.ParseMode(req.StrictMode)
		if !ok {
			errResp := NewErrorResponse(apperr.New(apperr.KindValidation, fmt.Sprintf("strict_mode %q is not one of Strict, Warn, Coerce", req.StrictMode)).WithPath("strict_mode"))
			return nil, &errResp
		}
		override = mode
	}

	result, err := translate.Translate(translate.Request{
		PromptSpec:         req.PromptSpec,
		ProviderSpec:       req.ProviderSpec,
		ModelID:            req.ModelID,
		StrictModeOverride: override,
	})
	if err != nil {
		errResp := NewErrorResponse(err)
		return nil, &errResp
	}

	resp := renderTranslateResponse(result)
	return resp, nil
}

// TranslateCached is the HTTP server's entry point: it consults specCache
// for a previously-validated ProviderSpec matching req.ProviderSpec's
// content hash before falling back to full Strict validation on a miss,
// then populates the cache so the next identical ProviderSpec skips it.
func TranslateCached(ctx context.Context, req TranslateRequest, specCache cache.SpecCache) (*TranslateResponse, *ErrorResponse) {
	var override strictness.Mode
	if req.StrictMode != "" {
		mode, ok := strictness.ParseMode(req.StrictMode)
		if !ok {
			errResp := NewErrorResponse(apperr.New(apperr.KindValidation, fmt.Sprintf("strict_mode %q is not one of Strict, Warn, Coerce", req.StrictMode)).WithPath("strict_mode"))
			return nil, &errResp
		}
		override = mode
	}

	key := cache.KeyFor(req.ProviderSpec)
	provider, hit, err := specCache.Get(ctx, key)
	if err != nil || !hit {
		doc, perr := jsonvalue.Parse(req.ProviderSpec)
		if perr != nil {
			errResp := NewErrorResponse(apperr.Wrap(apperr.KindValidation, "provider_spec is not valid JSON", perr))
			return nil, &errResp
		}
		if errs := validator.ValidateStrict(doc, validator.SpecTypeProvider); len(errs) > 0 {
			errResp := NewErrorResponse(apperr.NewValidation(errs))
			return nil, &errResp
		}
		decoded, derr := specs.DecodeProviderSpec(req.ProviderSpec)
		if derr != nil {
			errResp := NewErrorResponse(apperr.Wrap(apperr.KindInternal, "provider_spec passed validation but failed to decode", derr))
			return nil, &errResp
		}
		provider = decoded
		_ = specCache.Set(ctx, key, provider)
	}

	result, terr := translate.TranslateWithProvider(translate.Request{
		PromptSpec:         req.PromptSpec,
		ModelID:            req.ModelID,
		StrictModeOverride: override,
	}, provider)
	if terr != nil {
		errResp := NewErrorResponse(terr)
		return nil, &errResp
	}
	return renderTranslateResponse(result), nil
}

func renderTranslateResponse(result *assembler.Result) *TranslateResponse {
	return &TranslateResponse{
		ProviderRequestJSON: result.ProviderRequestJSON,
		Lossiness:           newLossinessWire(result.Items, result.Summary),
		Metadata: MetadataWire{
			ProviderName:         result.Metadata.ProviderName,
			ModelID:              result.Metadata.ModelID,
			StrictMode:           result.Metadata.StrictMode,
			DurationMicros:       result.Metadata.DurationMicros,
			PipelineStageTimings: result.Metadata.PipelineStageTimings,
		},
	}
}

// Validate runs the §4.2 validator for req and renders the §6.3 response.
func Validate(req ValidateRequest) (*ValidateResponse, error) {
	var which validator.SpecType
	switch req.SpecType {
	case "prompt":
		which = validator.SpecTypePrompt
	case "provider":
		which = validator.SpecTypeProvider
	default:
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("spec_type %q must be \"prompt\" or \"provider\"", req.SpecType))
	}

	mode := validator.Basic
	if req.Mode != "" {
		parsed, ok := validator.ParseMode(req.Mode)
		if !ok {
			return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("mode %q must be \"basic\", \"partial\", or \"strict\"", req.Mode))
		}
		mode = parsed
	}

	doc, err := jsonvalue.Parse(req.Spec)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "spec is not valid JSON", err)
	}

	errs := validator.Validate(doc, which, mode)
	if errs == nil {
		errs = []apperr.ValidationErrorDetail{}
	}
	return &ValidateResponse{Valid: len(errs) == 0, Errors: errs}, nil
}
