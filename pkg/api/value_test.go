package api

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_JSONKeepsNumberKinds(t *testing.T) {
	cases := []struct {
		in   string
		kind Kind
		out  string
	}{
		{`1`, KindInt, `1`},
		{`-7`, KindInt, `-7`},
		{`1.0`, KindFloat, `1.0`},
		{`1.5`, KindFloat, `1.5`},
		{`1e3`, KindFloat, `1000.0`},
		{`1e21`, KindFloat, `1e+21`},
		{`9223372036854775808`, KindFloat, `9.223372036854776e+18`},
		{`true`, KindBool, `true`},
		{`null`, KindNull, `null`},
		{`"x"`, KindString, `"x"`},
		{`[1, 2.0, "a"]`, KindList, `[1,2.0,"a"]`},
		{`{"b": 1, "a": {"c": []}}`, KindMap, `{"a":{"c":[]},"b":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tc.in), &v))
			assert.Equal(t, tc.kind, v.Kind())

			out, err := json.Marshal(v)
			require.NoError(t, err)
			assert.Equal(t, tc.out, string(out))

			var again Value
			require.NoError(t, json.Unmarshal(out, &again))
			assert.True(t, v.Equal(again), "%s != %s", v, again)
		})
	}
}

func TestValue_UnmarshalRejectsGarbage(t *testing.T) {
	var v Value
	assert.Error(t, v.UnmarshalJSON([]byte(`{`)))
	assert.Error(t, v.UnmarshalJSON([]byte(`1 2`)))
}

func TestValue_MarshalRejectsNonFinite(t *testing.T) {
	_, err := json.Marshal(Float(math.Inf(1)))
	assert.Error(t, err)
	_, err = json.Marshal(List(Float(math.NaN())))
	assert.Error(t, err)
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Null().Equal(Value{}))
	assert.False(t, Int(1).Equal(Float(1)))
	assert.True(t, Map(map[string]Value{"a": List(Int(1))}).Equal(Map(map[string]Value{"a": List(Int(1))})))
	assert.False(t, Map(map[string]Value{"a": Int(1)}).Equal(Map(map[string]Value{"b": Int(1)})))
	assert.False(t, List(Int(1)).Equal(List(Int(1), Int(2))))
}

func TestValue_Accessors(t *testing.T) {
	m := Map(map[string]Value{"n": Int(3), "tags": List(String("x"))})

	n, ok := m.Get("n")
	require.True(t, ok)
	i, ok := n.AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(3), i)

	_, ok = n.AsFloat()
	assert.False(t, ok)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 0, Int(1).Len())

	// Accessors return copies.
	entries, _ := m.AsMap()
	entries["n"] = Null()
	n, _ = m.Get("n")
	assert.Equal(t, KindInt, n.Kind())

	tags, _ := m.Get("tags")
	items, _ := tags.AsList()
	items[0] = Null()
	again, _ := tags.AsList()
	assert.Equal(t, String("x"), again[0])
}

func TestValue_ConstructorsCopy(t *testing.T) {
	items := []Value{Int(1)}
	l := List(items...)
	items[0] = Int(2)
	got, _ := l.AsList()
	assert.Equal(t, Int(1), got[0])

	src := map[string]Value{"a": Int(1)}
	m := Map(src)
	src["a"] = Int(2)
	a, _ := m.Get("a")
	assert.Equal(t, Int(1), a)
}

func TestFromAny_AndBack(t *testing.T) {
	in := map[string]any{
		"b":    true,
		"i":    42,
		"u":    uint8(7),
		"f":    0.25,
		"s":    "str",
		"nil":  nil,
		"list": []any{1, "two"},
	}
	v, err := FromAny(in)
	require.NoError(t, err)
	assert.Equal(t, KindMap, v.Kind())

	out := v.Any().(map[string]any)
	assert.Equal(t, true, out["b"])
	assert.Equal(t, int64(42), out["i"])
	assert.Equal(t, int64(7), out["u"])
	assert.Equal(t, 0.25, out["f"])
	assert.Nil(t, out["nil"])
	assert.Equal(t, []any{int64(1), "two"}, out["list"])

	_, err = FromAny(uint64(math.MaxUint64))
	assert.Error(t, err)
	_, err = FromAny(struct{}{})
	assert.ErrorContains(t, err, "unsupported value type")
	_, err = FromAny([]any{1, struct{}{}})
	assert.ErrorContains(t, err, "[1]")

	assert.Panics(t, func() { MustFromAny(make(chan int)) })
}

func TestErrors_Unwrap(t *testing.T) {
	inner := errors.New("timeout")
	re := &RunnerError{StepID: "s1", Resource: "db", Err: inner}
	assert.ErrorIs(t, re, ErrRunnerFailure)
	assert.ErrorIs(t, re, inner)
	id, ok := IsRunnerFailure(re)
	assert.True(t, ok)
	assert.Equal(t, "s1", id)

	_, ok = IsRunnerFailure(inner)
	assert.False(t, ok)

	me := &MalformedError{Field: "id", Msg: "missing"}
	assert.ErrorIs(t, me, ErrMalformedInput)
	assert.Equal(t, ErrMalformedInput.Error()+": id: missing", me.Error())

	assert.ErrorIs(t, &DuplicateIDError{Kind: "step", ID: "a"}, ErrDuplicateID)
	assert.ErrorIs(t, &ReferenceError{StepID: "a", Kind: "resource", Target: "x"}, ErrInvalidReference)
	assert.ErrorIs(t, &CycleError{Path: []string{"a", "a"}}, ErrCircularDependency)
}
