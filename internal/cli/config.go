package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long: `Inspect the effective configuration.

Settings come from built-in defaults, then the YAML config file
(--config, GIGAAM_CONFIG, or ~/.config/gigaam-inference/config.yaml),
then GIGAAM_* environment variables.`,
		Example: `  gigaam-inference config show
  gigaam-inference config show --defaults > config.yaml
  gigaam-inference config path`,
	}

	cmd.AddCommand(configShowCmd(env))
	cmd.AddCommand(configPathCmd(env))

	return cmd
}

func configShowCmd(env *Env) *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `Print the effective configuration as YAML.

Secrets are masked. With --defaults, prints the built-in defaults instead,
which is a convenient starting point for a config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(env, defaults)
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Print built-in defaults, ignoring file and environment")
	return cmd
}

func configPathCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigPath(env)
		},
	}
}

// runConfigShow handles the "config show" command.
func runConfigShow(env *Env, defaults bool) error {
	cfg, err := loadConfig(env, defaults)
	if err != nil {
		return err
	}
	data, err := cfg.Redacted().YAML()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	_, err = env.Stdout.Write(data)
	return err
}

// runConfigPath handles the "config path" command.
func runConfigPath(env *Env) error {
	path, _, err := env.ConfigLoader.Path(env.ConfigPath)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(env.Stdout, path)
	if _, err := os.Stat(path); err != nil {
		_, _ = fmt.Fprintln(env.Stderr, "(file does not exist; built-in defaults apply)")
	}
	return nil
}
