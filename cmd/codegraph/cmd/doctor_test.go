package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph-ai/codegraph-core/internal/modeldiscovery"
)

func TestDoctorCmd_ShowsHelp(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"doctor", "--help"})

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "model discovery")
}

func TestDoctorCmd_ReportsNotFoundWithoutAModelDir(t *testing.T) {
	t.Setenv(modeldiscovery.EnvModelsPath, "")
	t.Setenv(modeldiscovery.EnvModel2VecPath, "")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"doctor"})

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "no local model directory found")
}

func TestDoctorCmd_JSONReportsModelDir(t *testing.T) {
	modelDir := t.TempDir()
	for _, f := range modeldiscovery.RequiredFiles {
		require.NoError(t, os.WriteFile(filepath.Join(modelDir, f), []byte("x"), 0644))
	}
	t.Setenv(modeldiscovery.EnvModelsPath, modelDir)
	t.Chdir(t.TempDir())

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"doctor", "--json"})

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), modelDir)
	assert.Contains(t, out.String(), `"model_found"`)
}
