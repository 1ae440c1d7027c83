// SPDX-License-Identifier: MPL-2.0

// Package pipeline drives a build directory through fetching, pruning,
// copying, patching and building.
//
// A build directory has a single writer at a time, guarded by a lock file.
// Progress is checkpointed to buildstate.cue after every transition so that
// an interrupted run can be resumed with the same set of modules.
package pipeline
