package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/path"
	"specado/internal/prevalidate"
	"specado/internal/specs"
)

func mustRead(t *testing.T, root jsonvalue.Value, expr string) (jsonvalue.Value, bool) {
	t.Helper()
	p, err := path.Parse(expr)
	require.NoError(t, err)
	v, found, err := path.Read(root, p)
	require.NoError(t, err)
	return v, found
}

func TestRunEmulateJSONWritesSystemInstruction(t *testing.T) {
	model := &specs.ModelSpec{
		Mappings: specs.Mappings{Flags: []specs.FlagRule{{Name: "emulate_json_via_system_prompt"}}},
	}
	prompt := &specs.PromptSpec{}
	plan := prevalidate.Plan{EmulateJSON: true, JSONStrategy: "system_prompt"}
	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()

	err := Run(prompt, model, plan, &payload, tr)
	require.NoError(t, err)

	v, found := mustRead(t, payload, "$.system")
	require.True(t, found)
	assert.Contains(t, v.String_(), "valid JSON")

	items := tr.Items()
	require.Len(t, items, 1)
	assert.Equal(t, lossiness.CodeEmulate, items[0].Code)
}

func TestRunEmulateJSONAppendsToExistingSystemPrompt(t *testing.T) {
	model := &specs.ModelSpec{
		Mappings: specs.Mappings{
			Paths: []specs.PathMapping{},
			Flags: []specs.FlagRule{{Name: "emulate_json_via_system_prompt"}},
		},
	}
	prompt := &specs.PromptSpec{}
	plan := prevalidate.Plan{EmulateJSON: true}
	payload := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	payload.Object().Set("system", jsonvalue.String("be terse"))
	tr := lossiness.NewTracker()

	err := Run(prompt, model, plan, &payload, tr)
	require.NoError(t, err)

	v, found := mustRead(t, payload, "$.system")
	require.True(t, found)
	assert.Contains(t, v.String_(), "be terse")
	assert.Contains(t, v.String_(), "valid JSON")
}

func TestRunEmulateJSONNoopWhenPlanDoesNotRequireIt(t *testing.T) {
	model := &specs.ModelSpec{
		Mappings: specs.Mappings{Flags: []specs.FlagRule{{Name: "emulate_json_via_system_prompt"}}},
	}
	prompt := &specs.PromptSpec{}
	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()

	err := Run(prompt, model, prevalidate.Plan{}, &payload, tr)
	require.NoError(t, err)
	assert.Empty(t, tr.Items())
}

func TestRunSerializeParallelDisablesViaSwitchWhenSupported(t *testing.T) {
	model := &specs.ModelSpec{
		Tooling: specs.Tooling{
			ParallelToolCallsDefault:    false,
			CanDisableParallelToolCalls: true,
			DisableSwitch:               "$.disable_parallel",
		},
		Mappings: specs.Mappings{Flags: []specs.FlagRule{{Name: "serialize_parallel_tool_calls"}}},
	}
	prompt := &specs.PromptSpec{Tools: []specs.Tool{{Name: "a"}, {Name: "b"}}}
	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()

	err := Run(prompt, model, prevalidate.Plan{}, &payload, tr)
	require.NoError(t, err)

	v, found := mustRead(t, payload, "$.disable_parallel")
	require.True(t, found)
	assert.True(t, v.Bool())

	items := tr.Items()
	require.Len(t, items, 1)
	assert.Equal(t, lossiness.CodeEmulate, items[0].Code)
}

func TestRunSerializeParallelDropsIntentWhenProviderCannotDisable(t *testing.T) {
	model := &specs.ModelSpec{
		Tooling: specs.Tooling{ParallelToolCallsDefault: false, CanDisableParallelToolCalls: false},
		Mappings: specs.Mappings{Flags: []specs.FlagRule{{Name: "serialize_parallel_tool_calls"}}},
	}
	prompt := &specs.PromptSpec{Tools: []specs.Tool{{Name: "a"}, {Name: "b"}}}
	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()

	err := Run(prompt, model, prevalidate.Plan{}, &payload, tr)
	require.NoError(t, err)

	items := tr.Items()
	require.Len(t, items, 1)
	assert.Equal(t, specs.PathTools, items[0].Path)
}

func TestRunSerializeParallelNoopWhenOnlyOneTool(t *testing.T) {
	model := &specs.ModelSpec{
		Tooling:  specs.Tooling{ParallelToolCallsDefault: false},
		Mappings: specs.Mappings{Flags: []specs.FlagRule{{Name: "serialize_parallel_tool_calls"}}},
	}
	prompt := &specs.PromptSpec{Tools: []specs.Tool{{Name: "a"}}}
	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()

	err := Run(prompt, model, prevalidate.Plan{}, &payload, tr)
	require.NoError(t, err)
	assert.Empty(t, tr.Items())
}

func TestRunStaticFlagWritesValue(t *testing.T) {
	raw := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	raw.Object().Set("path", jsonvalue.String("$.stream"))
	raw.Object().Set("value", jsonvalue.Bool(true))

	model := &specs.ModelSpec{
		Mappings: specs.Mappings{Flags: []specs.FlagRule{{Name: "always_stream", Raw: raw}}},
	}
	prompt := &specs.PromptSpec{}
	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()

	err := Run(prompt, model, prevalidate.Plan{}, &payload, tr)
	require.NoError(t, err)

	v, found := mustRead(t, payload, "$.stream")
	require.True(t, found)
	assert.True(t, v.Bool())
}

func TestRunRecordsCollisionWhenTwoFlagsWriteSamePath(t *testing.T) {
	firstRaw := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	firstRaw.Object().Set("path", jsonvalue.String("$.system"))
	firstRaw.Object().Set("value", jsonvalue.String("first"))

	secondRaw := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	secondRaw.Object().Set("path", jsonvalue.String("$.system"))
	secondRaw.Object().Set("value", jsonvalue.String("second"))

	model := &specs.ModelSpec{
		Mappings: specs.Mappings{Flags: []specs.FlagRule{
			{Name: "flag-a", Raw: firstRaw},
			{Name: "flag-b", Raw: secondRaw},
		}},
	}
	prompt := &specs.PromptSpec{}
	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()

	err := Run(prompt, model, prevalidate.Plan{}, &payload, tr)
	require.NoError(t, err)

	items := tr.Items()
	require.Len(t, items, 1)
	assert.Equal(t, lossiness.CodeConflict, items[0].Code)

	v, found := mustRead(t, payload, "$.system")
	require.True(t, found)
	assert.Equal(t, "second", v.String_())
}
