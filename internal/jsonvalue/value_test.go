package jsonvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPreservesInsertionOrder(t *testing.T) {
	o := NewOrderedObject()
	o.Set("z", String("first"))
	o.Set("a", String("second"))
	o.Set("m", String("third"))

	assert.Equal(t, []string{"z", "a", "m"}, o.Keys())
}

func TestObjectSetOnExistingKeyDoesNotMove(t *testing.T) {
	o := NewOrderedObject()
	o.Set("a", Number(1))
	o.Set("b", Number(2))
	o.Set("a", Number(3))

	assert.Equal(t, []string{"a", "b"}, o.Keys())
	v, ok := o.Get("a")
	require.True(t, ok)
	assert.Equal(t, float64(3), v.Number())
}

func TestObjectDeleteRemovesKeyOrder(t *testing.T) {
	o := NewOrderedObject()
	o.Set("a", Number(1))
	o.Set("b", Number(2))
	o.Set("c", Number(3))

	removed, ok := o.Delete("b")
	require.True(t, ok)
	assert.Equal(t, float64(2), removed.Number())
	assert.Equal(t, []string{"a", "c"}, o.Keys())

	_, ok = o.Delete("b")
	assert.False(t, ok)
}

func TestValueCloneIsDeep(t *testing.T) {
	orig := ObjectOf(NewOrderedObject())
	orig.Object().Set("nested", Array(Number(1), Number(2)))

	clone := orig.Clone()
	clone.Object().Set("nested", Array(Number(99)))

	origNested, _ := orig.Object().Get("nested")
	assert.Equal(t, 2, origNested.Len())
}

func TestEqual(t *testing.T) {
	a := ObjectOf(NewOrderedObject())
	a.Object().Set("x", Number(1))
	a.Object().Set("y", String("hi"))

	b := ObjectOf(NewOrderedObject())
	b.Object().Set("y", String("hi"))
	b.Object().Set("x", Number(1))

	assert.True(t, Equal(a, b), "key order must not affect structural equality")

	c := ObjectOf(NewOrderedObject())
	c.Object().Set("x", Number(2))
	c.Object().Set("y", String("hi"))
	assert.False(t, Equal(a, c))
}

func TestParseRoundTripPreservesKeyOrder(t *testing.T) {
	raw := []byte(`{"beta":1,"alpha":2,"gamma":{"inner":true}}`)
	v, err := Parse(raw)
	require.NoError(t, err)
	require.True(t, v.IsObject())
	assert.Equal(t, []string{"beta", "alpha", "gamma"}, v.Object().Keys())

	out, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"beta":1,"alpha":2,"gamma":{"inner":true}}`, string(out))
}

func TestFromGoAndToGo(t *testing.T) {
	v := FromGo(map[string]any{"a": float64(1), "b": []any{"x", "y"}})
	require.True(t, v.IsObject())

	got := v.ToGo().(map[string]any)
	assert.Equal(t, float64(1), got["a"])
	assert.Equal(t, []any{"x", "y"}, got["b"])
}
