package command

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidLength(t *testing.T) {
	for _, limit := range []int{UsernameLimit, PasswordLimit, ChannelNameLimit} {
		assert.False(t, ValidLength("", limit))
		for n := 1; n <= limit; n++ {
			assert.True(t, ValidLength(strings.Repeat("a", n), limit), "length %d limit %d", n, limit)
		}
		assert.False(t, ValidLength(strings.Repeat("a", limit+1), limit))
		assert.False(t, ValidLength(strings.Repeat("a", limit*3), limit))
	}
}

func TestValidLengthCountsRunes(t *testing.T) {
	assert.True(t, ValidLength(strings.Repeat("é", UsernameLimit), UsernameLimit))
	assert.False(t, ValidLength(strings.Repeat("é", UsernameLimit+1), UsernameLimit))
	assert.True(t, ValidLength(strings.Repeat("频", ChannelNameLimit), ChannelNameLimit))
}

func TestJSONObject(t *testing.T) {
	accept := jsonObject("username", "password")

	var p payload
	assert.True(t, accept(json.RawMessage(`{"password": "b", "username": "a"}`), &p))
	assert.Equal(t, map[string]string{"username": "a", "password": "b"}, p.fields)

	for _, raw := range []string{
		`{"username": "a"}`,
		`{"username": "a", "password": "b", "x": "c"}`,
		`{"username": "a", "pass": "b"}`,
		`{"username": 1, "password": "b"}`,
		`{"username": "a", "password": null}`,
		`{"username": "a", "password": ["b"]}`,
		`["a", "b"]`,
		`"a"`,
		`null`,
		``,
	} {
		assert.False(t, accept(json.RawMessage(raw), &payload{}), raw)
	}
}

func TestJSONString(t *testing.T) {
	accept := jsonString()

	var p payload
	assert.True(t, accept(json.RawMessage(`"Server Team"`), &p))
	assert.Equal(t, "Server Team", p.text)
	assert.True(t, accept(json.RawMessage(`""`), &p))
	assert.Equal(t, "", p.text)

	for _, raw := range []string{`1`, `true`, `null`, `["x"]`, `{"x": "y"}`, `"unterminated`} {
		assert.False(t, accept(json.RawMessage(raw), &payload{}), raw)
	}
}

func TestJSONScalar(t *testing.T) {
	accept := jsonScalar()
	for _, raw := range []string{`""`, `"x"`, `0`, `1.5`, `true`, `null`} {
		assert.True(t, accept(json.RawMessage(raw), &payload{}), raw)
	}
	for _, raw := range []string{`[]`, `{}`, ``, `nope`} {
		assert.False(t, accept(json.RawMessage(raw), &payload{}), raw)
	}
}

func TestJSONStringList(t *testing.T) {
	accept := jsonStringList()

	var p payload
	assert.True(t, accept(json.RawMessage(`[]`), &p))
	assert.NotNil(t, p.list)
	assert.Empty(t, p.list)

	assert.True(t, accept(json.RawMessage(`["A", "B"]`), &p))
	assert.Equal(t, []string{"A", "B"}, p.list)

	for _, raw := range []string{`"A"`, `["A", 1]`, `["A", null]`, `[["A"]]`, `{}`, `null`} {
		assert.False(t, accept(json.RawMessage(raw), &payload{}), raw)
	}
}

func TestSplitEnvelope(t *testing.T) {
	name, body, err := splitEnvelope([]byte(` {"join_channel": ["A"]} `))
	assert.NoError(t, err)
	assert.Equal(t, "join_channel", name)
	assert.JSONEq(t, `["A"]`, string(body))

	for _, raw := range []string{``, `[]`, `{}`, `{"a": 1, "b": 2}`, `{"a": `} {
		_, _, err := splitEnvelope([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalidPayload, raw)
	}
}
