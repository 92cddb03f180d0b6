package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactArgumentsNested(t *testing.T) {
	in := map[string]any{
		"text":      "hello",
		"api_key":   "sk-123",
		"shape":     map[string]any{"Authorization": "Bearer x", "color": "red"},
		"ids":       []any{"a", map[string]any{"session_id": "s"}},
		"font_size": 12.0,
	}
	out := RedactArguments(in)

	assert.Equal(t, "hello", out["text"])
	assert.Equal(t, "***", out["api_key"])
	assert.Equal(t, map[string]any{"Authorization": "***", "color": "red"}, out["shape"])
	assert.Equal(t, []any{"a", map[string]any{"session_id": "***"}}, out["ids"])
	assert.Equal(t, 12.0, out["font_size"])
	assert.Equal(t, "sk-123", in["api_key"], "input must not be modified")
}

func TestRedactRawArguments(t *testing.T) {
	long := strings.Repeat("x", 300)
	out := RedactRawArguments(`{"text":"` + long + `","token":"t"}`).(map[string]any)
	assert.Equal(t, "***", out["token"])
	assert.Len(t, out["text"], maxLoggedString+3)

	assert.Equal(t, map[string]any{"unparsed_bytes": 5}, RedactRawArguments(`{"a":`))
}
