// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fixtures shared by cmdsplice tests.
//
// FakeFetcher stands in for the upstream remotes and FakeBuilder for the
// build tool. MustWriteModule lays out a command module on disk. The Must*
// helpers fail the test immediately instead of returning errors.
package testutil
