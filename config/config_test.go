package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, 20, cfg.MaxIterations)
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miniagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: openai
model: gpt-4o
api_key: sk-test
system_prompt: be helpful
max_iterations: 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "be helpful", cfg.SystemPrompt)
	assert.Equal(t, 5, cfg.MaxIterations)
}

func TestLoadFillsAPIKeyFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miniagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: openai\n"), 0o644))

	t.Setenv("OPENAI_API_KEY", "sk-env")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.APIKey)
}

func TestLoadFileKeyWinsOverEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miniagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: anthropic\napi_key: sk-file\n"), 0o644))

	t.Setenv("ANTHROPIC_API_KEY", "sk-env")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.APIKey)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miniagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
