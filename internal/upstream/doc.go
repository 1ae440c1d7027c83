// SPDX-License-Identifier: MPL-2.0

// Package upstream knows the on-disk layout of the Redis source tree and how
// to obtain it.
//
// A build works on two copies of the same ref: a git clone that is pruned,
// patched and built in place, and an unpacked zip archive that is never
// modified. The protected CoreSet (Redis' own object list) is read from the
// pristine copy so that objects appended to the working Makefile by an
// earlier run never end up protected.
package upstream
