package gateway

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandRequestCopiesInputs(t *testing.T) {
	history := []Message{{Role: RoleUser, Content: "first"}}
	state := json.RawMessage(`{"shapes":[]}`)

	req, err := NewCommandRequest("", " u1 ", " draw ", history, state)
	require.NoError(t, err)
	assert.NotEmpty(t, req.CorrelationID)
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, "draw", req.Prompt)

	history[0].Content = "changed"
	state[0] = '['
	assert.Equal(t, "first", req.History[0].Content)
	assert.Equal(t, `{"shapes":[]}`, string(req.CanvasState))
}

func TestNewCommandRequestRejectsContractViolations(t *testing.T) {
	cases := map[string]func() error{
		"missing user": func() error {
			_, err := NewCommandRequest("", "", "draw", nil, nil)
			return err
		},
		"missing prompt": func() error {
			_, err := NewCommandRequest("", "u1", "  ", nil, nil)
			return err
		},
		"prompt too long": func() error {
			_, err := NewCommandRequest("", "u1", strings.Repeat("a", MaxPromptLength+1), nil, nil)
			return err
		},
		"unknown role": func() error {
			_, err := NewCommandRequest("", "u1", "draw", []Message{{Role: "tool", Content: "x"}}, nil)
			return err
		},
		"bad canvas state": func() error {
			_, err := NewCommandRequest("", "u1", "draw", nil, json.RawMessage(`{"shapes":`))
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, fn(), ErrInvalidRequest)
		})
	}
}
