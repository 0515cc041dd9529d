package specs

// Canonical PromptSpec path constants (spec section 6.4), used by
// mappings.paths keys, transformer rule targets, and conflict resolution
// preference lists so callers don't hand-type path strings.
const (
	PathModelClass         = "model_class"
	PathMessages           = "messages"
	PathTools              = "tools"
	PathToolChoice         = "tool_choice"
	PathResponseFormat     = "response_format"
	PathSamplingTemperature = "sampling.temperature"
	PathSamplingTopP       = "sampling.top_p"
	PathSamplingTopK       = "sampling.top_k"
	PathSamplingFreqPenalty = "sampling.frequency_penalty"
	PathSamplingPresPenalty = "sampling.presence_penalty"
	PathLimitsMaxOutput    = "limits.max_output_tokens"
	PathLimitsReasoning    = "limits.reasoning_tokens"
	PathLimitsMaxPrompt    = "limits.max_prompt_tokens"
	PathMediaInputImages   = "media.input_images"
	PathMediaInputAudio    = "media.input_audio"
	PathMediaInputVideo    = "media.input_video"
	PathMediaInputDocuments = "media.input_documents"
	PathMediaOutputAudio   = "media.output_audio"
	PathRAG                = "rag"
	PathConversation       = "conversation"
	PathPreferences        = "preferences"
	PathStrictMode         = "strict_mode"
)

// CanonicalPaths lists every canonical path PromptSpec recognizes, in
// declaration order. The validator does not consult this set: at Strict it
// only checks that each mappings.paths key parses as a path expression.
var CanonicalPaths = []string{
	PathModelClass,
	PathMessages,
	PathTools,
	PathToolChoice,
	PathResponseFormat,
	PathSamplingTemperature,
	PathSamplingTopP,
	PathSamplingTopK,
	PathSamplingFreqPenalty,
	PathSamplingPresPenalty,
	PathLimitsMaxOutput,
	PathLimitsReasoning,
	PathLimitsMaxPrompt,
	PathMediaInputImages,
	PathMediaInputAudio,
	PathMediaInputVideo,
	PathMediaInputDocuments,
	PathMediaOutputAudio,
	PathRAG,
	PathConversation,
	PathPreferences,
	PathStrictMode,
}

// IsCanonicalPath reports whether p is one of CanonicalPaths.
func IsCanonicalPath(p string) bool {
	for _, c := range CanonicalPaths {
		if c == p {
			return true
		}
	}
	return false
}
