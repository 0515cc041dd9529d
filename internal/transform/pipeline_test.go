package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/path"
)

func newWorking() jsonvalue.Value {
	root := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	root.Object().Set("temperature", jsonvalue.Number(0.7))
	root.Object().Set("role", jsonvalue.String("assistant"))
	return root
}

func TestRunTypeConversionToInteger(t *testing.T) {
	working := newWorking()
	tr := lossiness.NewTracker()

	rules := []Rule{{
		ID:             "r1",
		SourcePath:     "$.temperature",
		TargetPath:     "$.temperature_int",
		Transformation: Transformation{Kind: KindTypeConversion, TypeConversion: &TypeConversionParams{To: "integer"}},
	}}

	err := Run(rules, &working, tr)
	require.NoError(t, err)

	v, found, err := readPath(working, "$.temperature_int")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, float64(0), v.Number())

	items := tr.Items()
	require.Len(t, items, 1)
	assert.Equal(t, lossiness.OpTypeConversion, items[0].OperationType)
}

func TestRunEnumMapping(t *testing.T) {
	working := newWorking()
	tr := lossiness.NewTracker()

	rules := []Rule{{
		ID:         "role-map",
		SourcePath: "$.role",
		TargetPath: "$.mapped_role",
		Transformation: Transformation{
			Kind:        KindEnumMapping,
			EnumMapping: &EnumMappingParams{Mapping: map[string]string{"assistant": "model"}},
		},
	}}

	err := Run(rules, &working, tr)
	require.NoError(t, err)

	v, found, err := readPath(working, "$.mapped_role")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "model", v.String_())
}

func TestRunEnumMappingOptionalFallbackSkips(t *testing.T) {
	working := newWorking()
	tr := lossiness.NewTracker()

	rules := []Rule{{
		ID:         "role-map",
		SourcePath: "$.role",
		Optional:   true,
		Transformation: Transformation{
			Kind:        KindEnumMapping,
			EnumMapping: &EnumMappingParams{Mapping: map[string]string{"user": "user"}},
		},
	}}

	err := Run(rules, &working, tr)
	require.NoError(t, err)

	items := tr.Items()
	require.Len(t, items, 1)
	assert.Equal(t, lossiness.CodeMapFallback, items[0].Code)
}

func TestRunEnumMappingRequiredFailsOnUnmapped(t *testing.T) {
	working := newWorking()
	tr := lossiness.NewTracker()

	rules := []Rule{{
		ID:         "role-map",
		SourcePath: "$.role",
		Transformation: Transformation{
			Kind:        KindEnumMapping,
			EnumMapping: &EnumMappingParams{Mapping: map[string]string{"user": "user"}},
		},
	}}

	err := Run(rules, &working, tr)
	require.Error(t, err)
}

func TestRunUnitConversion(t *testing.T) {
	working := newWorking()
	tr := lossiness.NewTracker()

	rules := []Rule{{
		ID:         "scale",
		SourcePath: "$.temperature",
		Transformation: Transformation{
			Kind:           KindUnitConversion,
			UnitConversion: &UnitConversionParams{Scale: 100, Offset: 1},
		},
	}}

	err := Run(rules, &working, tr)
	require.NoError(t, err)

	v, found, err := readPath(working, "$.temperature")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 71.0, v.Number(), 0.0001)
}

func TestRunDefaultValueAppliesOnlyWhenAbsent(t *testing.T) {
	working := newWorking()
	tr := lossiness.NewTracker()

	rules := []Rule{{
		ID:         "default-top-p",
		SourcePath: "$.top_p",
		Transformation: Transformation{
			Kind:         KindDefaultValue,
			DefaultValue: &DefaultValueParams{Value: jsonvalue.Number(1)},
		},
	}}

	err := Run(rules, &working, tr)
	require.NoError(t, err)

	v, found, err := readPath(working, "$.top_p")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, float64(1), v.Number())

	// Second run over a value that now exists must be a no-op.
	tr2 := lossiness.NewTracker()
	err = Run(rules, &working, tr2)
	require.NoError(t, err)
	assert.Empty(t, tr2.Items())
}

func TestRunConditionalAppliesMatchingBranch(t *testing.T) {
	working := newWorking()
	tr := lossiness.NewTracker()

	rules := []Rule{{
		ID:         "cond",
		SourcePath: "$.role",
		TargetPath: "$.role_was_assistant",
		Transformation: Transformation{
			Kind: KindConditional,
			Conditional: &ConditionalParams{Branches: []ConditionalBranch{
				{
					Condition:      Condition{Path: "$.role", Op: OpEquals, Value: jsonvalue.String("assistant")},
					Transformation: &Transformation{Kind: KindTypeConversion, TypeConversion: &TypeConversionParams{To: "string"}},
				},
			}},
		},
	}}

	err := Run(rules, &working, tr)
	require.NoError(t, err)

	v, found, err := readPath(working, "$.role_was_assistant")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "assistant", v.String_())
}

func TestRunSkipsRuleWhenConditionFalse(t *testing.T) {
	working := newWorking()
	tr := lossiness.NewTracker()

	rules := []Rule{{
		ID:         "conditional-rename",
		SourcePath: "$.role",
		TargetPath: "$.renamed",
		Condition:  &Condition{Path: "$.role", Op: OpEquals, Value: jsonvalue.String("user")},
		Transformation: Transformation{
			Kind: KindFieldRename,
		},
	}}

	err := Run(rules, &working, tr)
	require.NoError(t, err)

	_, found, err := readPath(working, "$.renamed")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRunOrdersByPriority(t *testing.T) {
	working := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	tr := lossiness.NewTracker()

	rules := []Rule{
		{
			ID: "second", Priority: 2, SourcePath: "$.a",
			Transformation: Transformation{Kind: KindDefaultValue, DefaultValue: &DefaultValueParams{Value: jsonvalue.String("second")}},
		},
		{
			ID: "first", Priority: 1, SourcePath: "$.a",
			Transformation: Transformation{Kind: KindDefaultValue, DefaultValue: &DefaultValueParams{Value: jsonvalue.String("first")}},
		},
	}

	err := Run(rules, &working, tr)
	require.NoError(t, err)

	v, found, err := readPath(working, "$.a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", v.String_(), "lower priority rule runs first and wins since the field is then present")
}

func readPath(root jsonvalue.Value, expr string) (jsonvalue.Value, bool, error) {
	p, err := path.Parse(expr)
	if err != nil {
		return jsonvalue.Value{}, false, err
	}
	return path.Read(root, p)
}
