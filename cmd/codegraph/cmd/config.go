package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/codegraph-ai/codegraph-core/configs"
	"github.com/codegraph-ai/codegraph-core/internal/config"
	"github.com/codegraph-ai/codegraph-core/internal/uiformat"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the user/global configuration file.

User configuration contains machine-specific settings that apply to ALL
projects on this machine, such as the embeddings provider and Ollama host.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/codegraph/config.yaml)
  3. Project config (.codegraph.yaml)
  4. Environment variables (CODEGRAPH_*)`,
		Example: `  # Create user config from template
  codegraph config init

  # Show effective configuration (merged from all sources)
  codegraph config show

  # Print user config file path
  codegraph config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user/global configuration file from a template.

The configuration file is created at ~/.config/codegraph/config.yaml
(or $XDG_CONFIG_HOME/codegraph/config.yaml if XDG_CONFIG_HOME is set).`,
		Example: `  # Create user config
  codegraph config init

  # Overwrite existing config
  codegraph config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the effective configuration after merging all sources.

By default, shows the merged configuration from defaults, the user
config, the project config and the environment.`,
		Example: `  # Show merged configuration
  codegraph config show

  # Show as JSON
  codegraph config show --json

  # Show only user config
  codegraph config show --source user`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Long:  `Print the path to the user configuration file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return nil
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	w := uiformat.NewResultWriter(cmd.OutOrStdout(), false)

	configPath := config.GetUserConfigPath()
	configDir := config.GetUserConfigDir()

	if config.UserConfigExists() {
		if !force {
			w.Status("warn", "User configuration already exists")
			w.Status("path", configPath)
			w.Status("hint", "use --force to overwrite (a backup is kept)")
			return nil
		}
		return runConfigUpgrade(w, configPath)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	if err := os.WriteFile(configPath, []byte(configs.UserConfigTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	w.Status("ok", "created user configuration")
	w.Status("path", configPath)
	return nil
}

// runConfigUpgrade backs up the existing user config and rewrites it
// from the current merged values, so fields added since the backup
// pick up their defaults without disturbing what the user already set.
func runConfigUpgrade(w *uiformat.ResultWriter, configPath string) error {
	backupPath, err := config.BackupUserConfig()
	if err != nil {
		return fmt.Errorf("failed to backup config: %w", err)
	}

	existingCfg, err := config.LoadUserConfig()
	if err != nil {
		return fmt.Errorf("failed to load existing config: %w", err)
	}

	if err := existingCfg.WriteYAML(configPath); err != nil {
		return fmt.Errorf("failed to write upgraded config: %w", err)
	}

	w.Status("ok", "configuration upgraded")
	w.Status("path", configPath)
	w.Status("backup", backupPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	w := uiformat.NewResultWriter(cmd.OutOrStdout(), jsonOutput)

	var cfg *config.Config
	var sourceDesc string

	switch source {
	case "merged":
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		root, err := config.FindProjectRoot(cwd)
		if err != nil {
			root = cwd
		}

		cfg, err = config.Load(root)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		sourceDesc = "merged (defaults + user + project + env)"

	case "user":
		configPath := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			w.Status("warn", "no user configuration file found")
			w.Status("hint", "run 'codegraph config init' to create one")
			return nil
		}
		var err error
		cfg, err = config.LoadUserConfig()
		if err != nil {
			return fmt.Errorf("failed to load user config: %w", err)
		}
		sourceDesc = fmt.Sprintf("user (%s)", configPath)

	case "project":
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		root, err := config.FindProjectRoot(cwd)
		if err != nil {
			root = cwd
		}

		yamlPath := filepath.Join(root, ".codegraph.yaml")
		ymlPath := filepath.Join(root, ".codegraph.yml")

		var configPath string
		switch {
		case fileExistsForShow(yamlPath):
			configPath = yamlPath
		case fileExistsForShow(ymlPath):
			configPath = ymlPath
		default:
			w.Status("warn", "no project configuration file found")
			w.Status("hint", "create .codegraph.yaml in the project root")
			return nil
		}

		cfg = config.NewConfig()
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read project config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse project config: %w", err)
		}
		sourceDesc = fmt.Sprintf("project (%s)", configPath)

	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "defaults (hardcoded)"

	default:
		return fmt.Errorf("invalid source: %s (use: merged, user, project, defaults)", source)
	}

	if jsonOutput {
		return w.JSON(cfg)
	}

	w.Status("source", sourceDesc)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func fileExistsForShow(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
