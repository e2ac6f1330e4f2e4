package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/invoicecheck/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Invoicecheck configuration",
	Long: `Manage Invoicecheck configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (INVOICECHECK_*)
3. Config file (~/.invoicecheck/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file and environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stdout := cmd.OutOrStdout()
		stderr := cmd.ErrOrStderr()

		cfg := configFromViper(viper.GetViper())
		cfg.LLM.ResolveModel()

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(stderr, "No configuration file found (using defaults)\n\n")
		}

		fmt.Fprintln(stdout, "═══════════════════════════════════════════════════════════")
		fmt.Fprintln(stdout, "  Current Configuration")
		fmt.Fprintln(stdout, "═══════════════════════════════════════════════════════════")
		fmt.Fprintln(stdout)

		// API keys are tagged yaml:"-" and never printed
		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Fprintln(stdout, string(yamlData))

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "Warning: %v\n\n", err)
		}

		fmt.Fprintln(stdout, "═══════════════════════════════════════════════════════════")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Configuration hierarchy (highest to lowest priority):")
		fmt.Fprintln(stdout, "  1. CLI flags")
		fmt.Fprintln(stdout, "  2. Environment variables (INVOICECHECK_*, GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY)")
		fmt.Fprintln(stdout, "  3. Config file (~/.invoicecheck/config.yaml)")
		fmt.Fprintln(stdout, "  4. Defaults")
		fmt.Fprintln(stdout)

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.invoicecheck/config.yaml with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configPath, err := writeDefaultConfig(filepath.Join(home, ".invoicecheck"))
		if err != nil {
			return err
		}

		stdout := cmd.OutOrStdout()
		fmt.Fprintf(stdout, "✓ Created default configuration: %s\n", configPath)
		fmt.Fprintf(stdout, "\nTo view the configuration:\n")
		fmt.Fprintf(stdout, "  invoicecheck config show\n")
		fmt.Fprintf(stdout, "\nTo customize, edit the file with your preferred editor:\n")
		fmt.Fprintf(stdout, "  $EDITOR %s\n", configPath)
		fmt.Fprintf(stdout, "\n")

		return nil
	},
}

// writeDefaultConfig creates configDir/config.yaml. An existing file is never overwritten.
func writeDefaultConfig(configDir string) (path string, err error) {
	configPath := filepath.Join(configDir, "config.yaml")

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s\nUse 'invoicecheck config show' to view it, or delete it first to recreate", configPath)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return "", fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	// Helper for writing with error checking
	printf := func(format string, a ...interface{}) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(f, format, a...)
	}

	printf("# Invoicecheck Configuration File\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (INVOICECHECK_*)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")

	yamlData, mErr := yaml.Marshal(model.DefaultConfig())
	if mErr != nil {
		return "", fmt.Errorf("error marshaling config: %w", mErr)
	}
	printf("%s", yamlData)

	printf("\n# API keys are read from the environment (or a local .env file):\n")
	printf("#   export GEMINI_API_KEY=...\n")
	printf("#   export OPENAI_API_KEY=sk-...\n")
	printf("#   export ANTHROPIC_API_KEY=sk-ant-...\n")
	printf("#   export OLLAMA_BASE_URL=http://localhost:11434\n")

	if err != nil {
		return "", fmt.Errorf("error writing config: %w", err)
	}
	return configPath, nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
