// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for cmdsplice.
//
// The root command splices command modules into the upstream Redis sources
// and builds them. The validate and config subcommands inspect modules and
// configuration without touching a build directory.
package cmd
