package course

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalNumericAndTextualFormsAgree(t *testing.T) {
	// The same course id arrives as a number, a string and a float
	// depending on the producer; all must normalize to the same value.
	inputs := []string{`42`, `"42"`, `42.0`, `" 42"`}

	for _, input := range inputs {
		var id ID
		err := json.Unmarshal([]byte(input), &id)
		require.NoError(t, err, "input %s", input)
		assert.Equal(t, ID(42), id, "input %s", input)
	}
}

func TestUnmarshalRejectsNonNumericIDs(t *testing.T) {
	inputs := []string{`"abc"`, `""`, `null`, `42.5`, `true`}

	for _, input := range inputs {
		var id ID
		err := json.Unmarshal([]byte(input), &id)
		assert.Error(t, err, "input %s", input)
	}
}

func TestUnmarshalInsideSlice(t *testing.T) {
	var ids []ID
	err := json.Unmarshal([]byte(`[1, "2", 3.0]`), &ids)
	require.NoError(t, err)
	assert.Equal(t, []ID{1, 2, 3}, ids)
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal([]ID{1, 2})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(data))
}

func TestParse(t *testing.T) {
	for _, v := range []any{float64(7), "7", json.Number("7"), 7, int64(7), ID(7)} {
		id, err := Parse(v)
		require.NoError(t, err, "value %v (%T)", v, v)
		assert.Equal(t, ID(7), id)
	}

	for _, v := range []any{"seven", float64(7.5), nil, true, []any{7}} {
		_, err := Parse(v)
		assert.Error(t, err, "value %v (%T)", v, v)
	}
}

func TestSetContains(t *testing.T) {
	s := NewSet(1, 3)

	assert.True(t, s.Contains(1))
	assert.True(t, s.Contains(3))
	assert.False(t, s.Contains(2))
	assert.Equal(t, 2, s.Len())

	s.Add(2)
	assert.True(t, s.Contains(2))
}
