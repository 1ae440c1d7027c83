// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cmdsplice/cmdsplice/internal/config"
	"github.com/cmdsplice/cmdsplice/internal/driver"
	"github.com/cmdsplice/cmdsplice/internal/issue"
	"github.com/cmdsplice/cmdsplice/internal/patch"
	"github.com/cmdsplice/cmdsplice/internal/pipeline"
	"github.com/cmdsplice/cmdsplice/internal/upstream"
	"github.com/cmdsplice/cmdsplice/pkg/cmdmodule"

	"github.com/spf13/cobra"
)

// classifyError maps a failure to its issue catalog entry and process exit
// code. A build tool failure keeps the tool's own status.
func classifyError(err error) (issue.Id, driver.ExitCode) {
	var (
		toolErr *driver.BuildToolError
		ae      *issue.ActionableError
	)
	switch {
	case errors.As(err, &toolErr):
		return issue.BuildToolFailedId, toolErr.Code.Failure()
	case errors.As(err, &ae) && ae.Issue != 0:
		return ae.Issue, driver.ExitCodeGeneric
	case errors.Is(err, cmdmodule.ErrModuleNotFound):
		return issue.ModuleNotFoundId, driver.ExitCodeGeneric
	case errors.Is(err, cmdmodule.ErrManifestParse):
		return issue.ManifestParseErrorId, driver.ExitCodeGeneric
	case errors.Is(err, patch.ErrAnchorNotFound):
		return issue.AnchorNotFoundId, driver.ExitCodeGeneric
	case errors.Is(err, patch.ErrAlreadyPatched):
		return issue.AlreadyPatchedId, driver.ExitCodeGeneric
	case errors.Is(err, upstream.ErrUpstreamLayout):
		return issue.UpstreamLayoutErrorId, driver.ExitCodeGeneric
	case errors.Is(err, upstream.ErrFetch):
		return issue.FetchFailedId, driver.ExitCodeGeneric
	case errors.Is(err, pipeline.ErrBuildDirectoryExists):
		return issue.BuildDirectoryExistsId, driver.ExitCodeGeneric
	case errors.Is(err, pipeline.ErrBuildDirectoryLocked):
		return issue.BuildDirectoryLockedId, driver.ExitCodeGeneric
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrInvalidLoadOptions):
		return issue.ConfigLoadFailedId, driver.ExitCodeGeneric
	default:
		return 0, driver.ExitCodeGeneric
	}
}

// ExitError carries the process status from a RunE handler to Execute.
// Err is nil once the failure has been written to stderr.
type ExitError struct {
	Code driver.ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + e.Code.String()
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// reportFailure renders err to stderr and converts it into an ExitError so
// that the process status follows classifyError.
func reportFailure(cmd *cobra.Command, stderr io.Writer, err error, verbose bool) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	issueID, code := classifyError(err)
	fmt.Fprintf(stderr, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))

	if verbose && issueID != 0 {
		if entry := issue.Get(issueID); entry != nil {
			rendered, renderErr := entry.Render("dark")
			if renderErr != nil {
				slog.Warn("failed to render issue catalog entry", "issueID", issueID, "error", renderErr)
			} else {
				fmt.Fprint(stderr, rendered)
			}
		}
	}

	return &ExitError{Code: code}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
