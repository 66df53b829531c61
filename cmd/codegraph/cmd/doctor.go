package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codegraph-ai/codegraph-core/internal/modeldiscovery"
	"github.com/codegraph-ai/codegraph-core/internal/uiformat"
)

func newDoctorCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check whether a local embedding model is discoverable",
		Long: `Doctor runs the model discovery priority chain (CODEGRAPH_MODELS_PATH,
the configured models_path, MODEL2VEC_PATH, then ~/.codegraph/models/model2vec)
and reports where a model2vec directory was found, if any.

This has no effect on whether codegraph can run: the static embedder needs
no model file at all, and is the default. It matters only if you've
configured a local model-file-backed embedder and want to confirm its
files are in place before the first real query.`,
		Example: `  # Check model discovery
  codegraph doctor

  # Machine-readable output
  codegraph doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// doctorReport is the doctor command's JSON/table output shape.
type doctorReport struct {
	ModelFound    bool     `json:"model_found"`
	ModelDir      string   `json:"model_dir,omitempty"`
	RequiredFiles []string `json:"required_files"`
	Error         string   `json:"error,omitempty"`
}

func runDoctor(cmd *cobra.Command, jsonOutput bool) error {
	w := uiformat.NewResultWriter(cmd.OutOrStdout(), jsonOutput)

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	report := doctorReport{RequiredFiles: modeldiscovery.RequiredFiles}

	dir, discoverErr := modeldiscovery.Discover(cfg.Embeddings.ModelsPath)
	if discoverErr != nil {
		report.Error = discoverErr.Error()
	} else {
		report.ModelFound = true
		report.ModelDir = dir
	}

	if jsonOutput {
		return w.JSON(report)
	}

	if report.ModelFound {
		w.Status("ok", fmt.Sprintf("model found at %s", report.ModelDir))
	} else {
		w.Status("warn", "no local model directory found")
		w.Status("hint", report.Error)
		w.Status("hint", "the static embedder needs no model file and remains available")
	}
	return nil
}
