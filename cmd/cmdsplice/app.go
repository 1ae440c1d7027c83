// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"os"

	"github.com/cmdsplice/cmdsplice/internal/config"
	"github.com/cmdsplice/cmdsplice/internal/driver"
	"github.com/cmdsplice/cmdsplice/internal/upstream"
)

type (
	// FetcherFactory returns the fetcher for the configured upstream.
	FetcherFactory func(cfg *config.Config) upstream.Fetcher

	// BuilderFactory returns the build driver for the configured command.
	BuilderFactory func(cfg *config.Config, stdout, stderr io.Writer) driver.Builder

	// App wires CLI services and shared dependencies. All Cobra command
	// handlers receive an App reference.
	App struct {
		Config     config.Provider
		NewFetcher FetcherFactory
		NewBuilder BuilderFactory
		stdout     io.Writer
		stderr     io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     config.Provider
		NewFetcher FetcherFactory
		NewBuilder BuilderFactory
		Stdout     io.Writer
		Stderr     io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.NewFetcher == nil {
		deps.NewFetcher = remoteFetcher
	}
	if deps.NewBuilder == nil {
		deps.NewBuilder = makeBuilder
	}

	return &App{
		Config:     deps.Config,
		NewFetcher: deps.NewFetcher,
		NewBuilder: deps.NewBuilder,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
}

func remoteFetcher(cfg *config.Config) upstream.Fetcher {
	return upstream.NewRemote(cfg.Source())
}

func makeBuilder(cfg *config.Config, stdout, stderr io.Writer) driver.Builder {
	d := driver.NewMakeDriver(cfg.Build.Command, int(cfg.Build.Jobs))
	d.Stdout = stdout
	d.Stderr = stderr
	return d
}
