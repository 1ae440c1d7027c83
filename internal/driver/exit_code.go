// SPDX-License-Identifier: MPL-2.0

package driver

import "strconv"

// ExitCode is a process exit status. Zero means success.
type ExitCode int

// Statuses the driver reports when the build tool produced none of its own.
const (
	// ExitCodeGeneric reports a tool that could not be started.
	ExitCodeGeneric ExitCode = 1
	// ExitCodeNotFound reports a tool missing from PATH, as a shell would.
	ExitCodeNotFound ExitCode = 127
	// ExitCodeSignaled reports a tool killed by a signal.
	ExitCodeSignaled ExitCode = 128
)

// Failure returns c when it is a status a POSIX parent can observe
// (1 to 255) and ExitCodeGeneric otherwise. A failed run never exits 0.
func (c ExitCode) Failure() ExitCode {
	if c < 1 || c > 255 {
		return ExitCodeGeneric
	}
	return c
}

func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
