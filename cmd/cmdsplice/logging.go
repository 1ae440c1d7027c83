// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// setupLogging routes slog records from every package through a
// charmbracelet logger on w.
func setupLogging(w io.Writer, verbose bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(w, log.Options{
		Prefix: "cmdsplice",
		Level:  level,
	})
	slog.SetDefault(slog.New(logger))
}
