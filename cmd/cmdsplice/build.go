// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cmdsplice/cmdsplice/internal/config"
	"github.com/cmdsplice/cmdsplice/internal/issue"
	"github.com/cmdsplice/cmdsplice/internal/pipeline"
	"github.com/cmdsplice/cmdsplice/internal/plan"
)

// completionNotice is printed after a successful build.
const completionNotice = "Completed. You can use your custom build now!"

// stepOperations describe each working state for error messages.
var stepOperations = map[pipeline.State]string{
	pipeline.StateFetching: "fetch upstream sources",
	pipeline.StatePruning:  "prune upstream tree",
	pipeline.StateCopying:  "copy module files",
	pipeline.StatePatching: "patch upstream sources",
	pipeline.StateBuilding: "build",
}

// loadConfig resolves the configuration for one invocation. The --build-dir
// flag wins over every configured value.
func loadConfig(ctx context.Context, app *App, opts *rootOptions) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: opts.cfgFile, WorkDir: wd})
	if err != nil {
		return nil, err
	}
	if opts.buildDir != "" {
		cfg.BuildDir = config.BuildDirPath(opts.buildDir)
	}
	if opts.verbose || cfg.UI.Verbose {
		opts.verbose = true
		setupLogging(app.stderr, true)
	}
	return cfg, nil
}

// runBuild splices the modules in moduleDirs into a fresh or resumed build
// directory and builds it.
func runBuild(ctx context.Context, app *App, opts *rootOptions, moduleDirs []string) error {
	cfg, err := loadConfig(ctx, app, opts)
	if err != nil {
		return err
	}

	p, err := plan.Load(cfg.Source(), moduleDirs)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("load modules").
			WithSuggestion("Run 'cmdsplice validate <module-dir>' to check a module").
			Wrap(err).
			BuildError()
	}
	if len(p.Declarations()) == 0 {
		slog.Warn("no valid command definitions in any module; building without custom commands")
	}

	root, err := filepath.Abs(cfg.BuildDir.String())
	if err != nil {
		return fmt.Errorf("failed to resolve build directory: %w", err)
	}
	dir := pipeline.NewBuildDirectory(root)

	lease, err := dir.Acquire(p.Fingerprint(), opts.force)
	if err != nil {
		ec := issue.NewErrorContext().
			WithOperation("prepare build directory").
			WithResource(root)
		if !opts.force {
			ec = ec.WithSuggestion("Pass --force to delete and recreate the build directory")
		}
		return ec.Wrap(err).BuildError()
	}
	defer lease.Release()

	machine := pipeline.NewMachine(lease, p, app.NewFetcher(cfg), app.NewBuilder(cfg, app.stdout, app.stderr))
	if err := machine.Run(ctx); err != nil {
		return stepFailure(err, lease.Dir)
	}

	fmt.Fprintln(app.stdout, SuccessStyle.Render(completionNotice))
	fmt.Fprintf(app.stdout, "%s %s\n", infoIcon, lease.Dir.Tree().Root)
	return nil
}

// stepFailure wraps a machine error with the operation of the failed state.
func stepFailure(err error, dir pipeline.BuildDirectory) error {
	var stepErr *pipeline.StepError
	if !errors.As(err, &stepErr) {
		return err
	}

	op, ok := stepOperations[stepErr.State]
	if !ok {
		op = "record build state"
	}
	ec := issue.NewErrorContext().
		WithOperation(op).
		WithResource(dir.Tree().Root)
	if stepErr.State == pipeline.StatePatching {
		ec = ec.WithSuggestion("Pass --force to start again from a fresh upstream tree")
	} else {
		ec = ec.WithSuggestion("Rerun the same command to resume; completed steps are skipped")
	}
	return ec.Wrap(stepErr.Err).BuildError()
}
