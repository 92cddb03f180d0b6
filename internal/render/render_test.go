package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBytesSubstitutesEnv(t *testing.T) {
	t.Setenv("CANVAS_TEST_MODEL", "gpt-test")
	out, err := RenderBytes("cfg", []byte(`model: {{ env "CANVAS_TEST_MODEL" }}
listen: {{ envOr "CANVAS_TEST_UNSET_LISTEN" ":9090" }}`))
	require.NoError(t, err)
	assert.Equal(t, "model: gpt-test\nlisten: :9090", string(out))
}

func TestRenderBytesReportsMissingEnv(t *testing.T) {
	_, err := RenderBytes("cfg", []byte(`a: {{ env "CANVAS_TEST_MISSING_B" }}
b: {{ env "CANVAS_TEST_MISSING_A" }}`))
	require.Error(t, err)
	assert.Equal(t, "missing env vars: CANVAS_TEST_MISSING_A, CANVAS_TEST_MISSING_B", err.Error())
}

func TestRenderBytesRequired(t *testing.T) {
	t.Setenv("CANVAS_TEST_EMPTY", "")
	_, err := RenderBytes("cfg", []byte(`key: {{ required "CANVAS_TEST_EMPTY" }}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CANVAS_TEST_EMPTY")
}

func TestRenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: {{ "canvas" | upper }}`), 0o600))
	out, err := RenderFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name: CANVAS", string(out))

	_, err = RenderFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
