// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cmdsplice/cmdsplice/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `cmdsplice config` command tree.
func newConfigCommand(app *App, opts *rootOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cmdsplice configuration",
		Long: `Manage cmdsplice configuration.

Configuration is read from the first of:
  - the file given with --config
  - ~/.config/cmdsplice/config.cue (Linux), ~/Library/Application Support/cmdsplice/config.cue (macOS),
    %APPDATA%\cmdsplice\config.cue (Windows)
  - ./cmdsplice.cue

CMDSPLICE_* environment variables override file values, for example
CMDSPLICE_BUILD_DIR or CMDSPLICE_BUILD_JOBS.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := showConfig(cmd.Context(), app, opts); err != nil {
				return reportFailure(cmd, app.stderr, err, opts.verbose)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(app); err != nil {
				return reportFailure(cmd, app.stderr, err, opts.verbose)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, opts *rootOptions) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, path, err := config.Resolve(ctx, config.LoadOptions{ConfigFilePath: opts.cfgFile, WorkDir: wd})
	if err != nil {
		return err
	}
	if opts.buildDir != "" {
		cfg.BuildDir = config.BuildDirPath(opts.buildDir)
	}

	if path == "" {
		fmt.Fprintln(app.stdout, "// no config file found, using defaults")
	} else {
		fmt.Fprintf(app.stdout, "// loaded from %s\n", path)
	}
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

func initConfig(app *App) error {
	path, created, err := config.CreateDefaultConfig(config.LoadOptions{})
	if err != nil {
		return err
	}

	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", infoIcon, path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", successIcon, path)
	return nil
}

func showConfigPath(app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}
