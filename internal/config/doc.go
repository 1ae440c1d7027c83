// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is looked up in order: an explicit --config file, then
// config.cue in the user config directory ($XDG_CONFIG_HOME/cmdsplice on
// Linux), then cmdsplice.cue in the working directory. Without any file the
// defaults apply. Environment variables prefixed with CMDSPLICE_ override file
// values (CMDSPLICE_BUILD_JOBS overrides build.jobs).
//
// Files are validated against the embedded config_schema.cue before they are
// merged into Viper.
package config
