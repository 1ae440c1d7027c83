// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/cmdsplice/cmdsplice/internal/config"
	"github.com/cmdsplice/cmdsplice/internal/pipeline"
	"github.com/cmdsplice/cmdsplice/internal/plan"
	"github.com/cmdsplice/cmdsplice/internal/upstream"
	"github.com/cmdsplice/cmdsplice/pkg/cmdmodule"

	"github.com/spf13/cobra"
)

// newValidateCommand creates the `cmdsplice validate` command.
func newValidateCommand(app *App, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <module-dir>...",
		Short: "Check command modules without building",
		Long: `Check command modules without touching a build directory.

For every module the accepted and rejected command definitions, the source
files and the objects they compile to are listed. Conflicts between modules
are reported as warnings. When the build directory already holds a fetched
upstream, module files that replace upstream sources are reported too.

Examples:
  cmdsplice validate ./ping2
  cmdsplice validate ./ping2 ./hello --build-dir /tmp/redis-build`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runValidate(cmd.Context(), app, opts, args); err != nil {
				return reportFailure(cmd, app.stderr, err, opts.verbose)
			}
			return nil
		},
	}
}

func runValidate(ctx context.Context, app *App, opts *rootOptions, dirs []string) error {
	out := app.stdout
	fmt.Fprintln(out, TitleStyle.Render("Module Validation"))

	var (
		modules []*cmdmodule.CommandModule
		invalid int
	)
	for _, dir := range dirs {
		result, err := cmdmodule.Validate(dir)
		if err != nil {
			return fmt.Errorf("validation error: %w", err)
		}
		printValidation(out, result)
		if !result.Valid {
			invalid++
			continue
		}
		modules = append(modules, result.Module)
	}

	if len(modules) > 0 {
		cfg, err := loadConfig(ctx, app, opts)
		if err != nil {
			return err
		}
		p := plan.New(cfg.Source(), modules)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s Plan: %d command(s), %d object(s), %d file(s)\n",
			infoIcon, len(p.Declarations()), len(p.Objects()), len(p.CopyTargets()))
		for _, w := range p.Warnings() {
			fmt.Fprintf(out, "  %s %s\n", warningIcon, w)
		}
		if err := printCoreCollisions(out, cfg, p); err != nil {
			return err
		}
	}

	fmt.Fprintln(out)
	if invalid > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d module(s) failed validation", invalid, len(dirs))}
	}
	fmt.Fprintf(out, "%s All modules are valid\n", successIcon)
	return nil
}

func printValidation(out io.Writer, result *cmdmodule.ValidationResult) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s Path: %s\n", infoIcon, SubtitleStyle.Render(result.ModulePath))

	if !result.Valid {
		fmt.Fprintf(out, "%s Module is invalid (%d issue(s))\n", errorIcon, len(result.Issues))
		for i, issue := range result.Issues {
			printIssue(out, fmt.Sprintf("%d.", i+1), issue)
		}
		return
	}

	for _, v := range result.Verdicts {
		if v.Accepted() {
			fmt.Fprintf(out, "  %s %s -> %s\n", successIcon, CmdStyle.Render(v.Declaration.Name), v.Declaration.FunctionName)
		}
	}
	for _, src := range result.Module.SourceFiles {
		name := filepath.Base(src)
		if obj, ok := cmdmodule.ObjectName(src); ok {
			fmt.Fprintf(out, "  %s %s -> %s\n", infoIcon, name, obj)
		} else {
			fmt.Fprintf(out, "  %s %s\n", infoIcon, name)
		}
	}
	for _, w := range result.Warnings {
		printIssue(out, warningIcon, w)
	}
}

func printIssue(out io.Writer, prefix string, v cmdmodule.ValidationIssue) {
	kind := WarningStyle.Render(fmt.Sprintf("[%s]", v.Type))
	if v.Path != "" {
		fmt.Fprintf(out, "  %s %s %s %s\n", prefix, kind, SubtitleStyle.Render(v.Path), v.Message)
		return
	}
	fmt.Fprintf(out, "  %s %s %s\n", prefix, kind, v.Message)
}

// printCoreCollisions lists module objects the upstream already builds. It
// needs the reference tree of an earlier fetch and stays silent without one.
func printCoreCollisions(out io.Writer, cfg *config.Config, p *plan.BuildPlan) error {
	root, err := filepath.Abs(cfg.BuildDir.String())
	if err != nil {
		return fmt.Errorf("failed to resolve build directory: %w", err)
	}

	ref := pipeline.NewBuildDirectory(root).Reference()
	core, err := upstream.LoadCoreSet(ref.MakefilePath())
	if err != nil {
		// Nothing fetched yet.
		return nil //nolint:nilerr
	}
	for _, obj := range p.CoreCollisions(core) {
		fmt.Fprintf(out, "  %s %s replaces the upstream object of the same name\n", warningIcon, obj)
	}
	return nil
}
