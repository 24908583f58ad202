package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"octowatch/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Add your printers and set notifications.ntfy_topic (or export OCTOWATCH_NTFY_TOPIC) before running octowatch.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration with credentials masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			encoded, err := config.Encode(cfg.Redacted())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			source := ctx.configPath
			if !ctx.configExists {
				source += " (not found; defaults shown)"
			}
			fmt.Fprintf(out, "# %s\n", source)
			fmt.Fprint(out, encoded)
			return nil
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configExists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
