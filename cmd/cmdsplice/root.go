// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cmdsplice/cmdsplice/internal/driver"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags of one invocation.
type rootOptions struct {
	force    bool
	verbose  bool
	cfgFile  string
	buildDir string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "cmdsplice [flags] <module-dir>...",
		Short: "Splice custom command modules into Redis and build it",
		Long: TitleStyle.Render("cmdsplice") + SubtitleStyle.Render(" - Splice custom command modules into Redis and build it") + `

Each module directory holds a config.json listing command table entries and a
sources/ directory with the C files implementing them. cmdsplice fetches the
Redis sources into the build directory, copies the module files in, declares
the commands in server.h, server.c and the Makefile, and runs make.

An interrupted build is resumed when the same modules are passed again.

` + SubtitleStyle.Render("Examples:") + `
  cmdsplice ./ping2                 Build Redis with the ping2 module
  cmdsplice -f ./ping2 ./hello      Rebuild from scratch with two modules
  cmdsplice validate ./ping2        Check a module without building`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(app.stderr, opts.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			if err := runBuild(cmd.Context(), app, opts, args); err != nil {
				return reportFailure(cmd, app.stderr, err, opts.verbose)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging and detailed errors")
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/cmdsplice/config.cue)")
	flags.StringVar(&opts.buildDir, "build-dir", "", "build directory (overrides the configured build_dir)")
	rootCmd.Flags().BoolVarP(&opts.force, "force", "f", false, "delete and recreate an existing build directory")

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(newValidateCommand(app, opts))
	rootCmd.AddCommand(newConfigCommand(app, opts))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the resulting status.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code.Failure()))
		}
		os.Exit(int(driver.ExitCodeGeneric))
	}
}

// handleError skips failures that reportFailure already rendered.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
