package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.NotEmpty(t, cfg.Store.Dir)
	assert.Equal(t, 0.3, cfg.Search.BM25Weight)
	assert.Equal(t, 0.5, cfg.Search.SemanticWeight)
	assert.Equal(t, 0.2, cfg.Search.GraphWeight)
	assert.Equal(t, 20, cfg.Search.Limit)
	assert.True(t, cfg.Search.CurrentOnly)
	assert.Equal(t, 100, cfg.HNSW.EfSearch)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, "stdio", cfg.Server.Transport)
}

func TestNewConfig_Validates(t *testing.T) {
	cfg := NewConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_NegativeWeight_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.BM25Weight = -0.1

	assert.Error(t, cfg.Validate())
}

func TestValidate_AllZeroWeights_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.BM25Weight = 0
	cfg.Search.SemanticWeight = 0
	cfg.Search.GraphWeight = 0

	assert.Error(t, cfg.Validate())
}

func TestValidate_UnknownProvider_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.Provider = "made-up-provider"

	assert.Error(t, cfg.Validate())
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := "version: 1\nsearch:\n  bm25_weight: 0.6\n  semantic_weight: 0.4\n  graph_weight: 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codegraph.yaml"), []byte(yamlContent), 0644))

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.Search.BM25Weight)
	assert.Equal(t, 0.4, cfg.Search.SemanticWeight)
}

func TestLoad_YmlExtensionAlsoRecognized(t *testing.T) {
	dir := t.TempDir()
	yamlContent := "version: 1\nembeddings:\n  provider: ollama\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codegraph.yml"), []byte(yamlContent), 0644))

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

func TestLoad_NoProjectFile_UsesDefaults(t *testing.T) {
	dir := t.TempDir()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestLoad_EnvOverridesProjectFile(t *testing.T) {
	dir := t.TempDir()
	yamlContent := "version: 1\nsearch:\n  bm25_weight: 0.6\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codegraph.yaml"), []byte(yamlContent), 0644))

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	os.Setenv("CODEGRAPH_BM25_WEIGHT", "0.9")
	defer os.Unsetenv("CODEGRAPH_BM25_WEIGHT")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Search.BM25Weight)
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codegraph.yaml"), []byte("not: [valid: yaml"), 0644))

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	_, err := Load(dir)

	assert.Error(t, err)
}

func TestLoad_InvalidConfigAfterMerge_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	yamlContent := "version: 1\nembeddings:\n  provider: not-a-real-provider\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codegraph.yaml"), []byte(yamlContent), 0644))

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	_, err := Load(dir)

	assert.Error(t, err)
}

func TestGetUserConfigPath_HonorsXDG(t *testing.T) {
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", "/tmp/xdgtest")
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	assert.Equal(t, "/tmp/xdgtest/codegraph/config.yaml", GetUserConfigPath())
}

func TestUserConfigExists(t *testing.T) {
	dir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", dir)
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	assert.False(t, UserConfigExists())

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "codegraph"), 0755))
	require.NoError(t, os.WriteFile(GetUserConfigPath(), []byte("version: 1\n"), 0644))

	assert.True(t, UserConfigExists())
}

func TestLoadUserConfig_MergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", dir)
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "codegraph"), 0755))
	require.NoError(t, os.WriteFile(GetUserConfigPath(), []byte("embeddings:\n  host: http://example.com:11434\n"), 0644))

	cfg, err := LoadUserConfig()

	require.NoError(t, err)
	assert.Equal(t, "http://example.com:11434", cfg.Embeddings.Host)
	assert.Equal(t, 0.3, cfg.Search.BM25Weight) // default preserved
}

func TestFindProjectRoot_FindsGitDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0755))

	root, err := FindProjectRoot(sub)

	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestFindProjectRoot_FindsProjectConfig(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codegraph.yaml"), []byte("version: 1\n"), 0644))

	root, err := FindProjectRoot(sub)

	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestFindProjectRoot_NoMarker_ReturnsStartDir(t *testing.T) {
	dir := t.TempDir()

	root, err := FindProjectRoot(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, root)
}
