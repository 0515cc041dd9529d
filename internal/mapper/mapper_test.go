package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/path"
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

func TestRunAppliesMappingAndRecordsRelocate(t *testing.T) {
	uniform := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	uniform.Object().Set("model_class", jsonvalue.String("Chat"))
	uniform.Object().Set("messages", jsonvalue.Array())

	model := &specs.ModelSpec{
		Mappings: specs.Mappings{
			Paths: []specs.PathMapping{
				{Canonical: specs.PathModelClass, Provider: "$.model"},
				{Canonical: specs.PathMessages, Provider: "$.messages"},
			},
		},
	}

	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()
	err := Run(uniform, model, nil, &payload, tr)
	require.NoError(t, err)

	v, found := mustRead(t, payload, "$.model")
	require.True(t, found)
	assert.Equal(t, "Chat", v.String_())

	items := tr.Items()
	require.Len(t, items, 2, "every mapping records a Relocate item since the canonical and provider path strings never match verbatim")
	assert.Equal(t, lossiness.CodeRelocate, items[0].Code)
	assert.Equal(t, specs.PathModelClass, items[0].Path)
}

func TestRunRequiredFieldAbsentRecordsDrop(t *testing.T) {
	uniform := jsonvalue.NewObject()
	model := &specs.ModelSpec{
		Mappings: specs.Mappings{
			Paths: []specs.PathMapping{{Canonical: specs.PathModelClass, Provider: "$.model"}},
		},
	}
	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()
	err := Run(uniform, model, map[string]bool{specs.PathModelClass: true}, &payload, tr)
	require.NoError(t, err)

	items := tr.Items()
	require.Len(t, items, 1)
	assert.Equal(t, lossiness.CodeDrop, items[0].Code)
}

func TestRunReportsUnmappedUniformFieldsAsDrop(t *testing.T) {
	uniform := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	uniform.Object().Set("model_class", jsonvalue.String("Chat"))
	uniform.Object().Set("top_p", jsonvalue.Number(0.9))

	model := &specs.ModelSpec{}
	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()
	err := Run(uniform, model, nil, &payload, tr)
	require.NoError(t, err)

	items := tr.Items()
	require.Len(t, items, 1, "model_class is excluded from the unmapped-field sweep")
	assert.Equal(t, lossiness.CodeDrop, items[0].Code)
	assert.Equal(t, "top_p", items[0].Path)
}

func TestRunRelocatesLeadingSystemMessage(t *testing.T) {
	sysMsg := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	sysMsg.Object().Set("role", jsonvalue.String("System"))
	sysMsg.Object().Set("content", jsonvalue.String("be concise"))

	userMsg := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	userMsg.Object().Set("role", jsonvalue.String("User"))
	userMsg.Object().Set("content", jsonvalue.String("hi"))

	uniform := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	uniform.Object().Set("messages", jsonvalue.Array(sysMsg, userMsg))

	model := &specs.ModelSpec{
		Constraints: specs.Constraints{SystemPromptLocation: "top_level"},
		Mappings: specs.Mappings{
			Paths: []specs.PathMapping{{Canonical: specs.PathMessages, Provider: "$.messages"}},
		},
	}
	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()
	err := Run(uniform, model, nil, &payload, tr)
	require.NoError(t, err)

	sysVal, found := mustRead(t, payload, "$.system")
	require.True(t, found)
	assert.Equal(t, "be concise", sysVal.String_())

	msgsVal, found := mustRead(t, payload, "$.messages")
	require.True(t, found)
	require.Equal(t, 1, msgsVal.Len())

	var relocated bool
	for _, item := range tr.Items() {
		if item.Code == lossiness.CodeRelocate && item.Path == specs.PathMessages+"[0]" {
			relocated = true
		}
	}
	assert.True(t, relocated)
}
