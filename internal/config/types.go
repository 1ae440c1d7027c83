// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cmdsplice/cmdsplice/internal/upstream"
)

const (
	// DefaultBuildDir is the build directory used when none is configured.
	DefaultBuildDir = "build"
	// DefaultGitURL is the upstream Redis repository.
	DefaultGitURL = "https://github.com/redis/redis"
	// DefaultGitRef is the upstream branch that is cloned.
	DefaultGitRef = "unstable"
	// DefaultArchiveURL is the zip archive of DefaultGitRef.
	DefaultArchiveURL = "https://github.com/redis/redis/archive/unstable.zip"
	// DefaultBuildCommand is the build tool invocation.
	DefaultBuildCommand = "make"
)

var (
	// ErrInvalidBuildDirPath is returned when a BuildDirPath is empty or whitespace-only.
	ErrInvalidBuildDirPath = errors.New("invalid build directory path")
	// ErrInvalidGitRef is returned when a GitRef is empty or contains whitespace.
	ErrInvalidGitRef = errors.New("invalid git ref")
	// ErrInvalidArchiveURL is returned when an ArchiveURL is not an absolute http(s) URL.
	ErrInvalidArchiveURL = errors.New("invalid archive URL")
	// ErrUnpairedArchiveURL is returned when upstream.archive_url is set
	// without upstream.git_ref.
	ErrUnpairedArchiveURL = errors.New("upstream.archive_url requires upstream.git_ref")
	// ErrInvalidBuildJobs is returned when BuildJobs is negative.
	ErrInvalidBuildJobs = errors.New("invalid build jobs")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidLoadOptions is the sentinel error wrapped by InvalidLoadOptionsError.
	ErrInvalidLoadOptions = errors.New("invalid load options")
)

type (
	// BuildDirPath is the directory holding the upstream tree and build state.
	BuildDirPath string

	// GitRef names the branch or tag checked out from the upstream repository.
	GitRef string

	// ArchiveURL locates the zip archive of the upstream ref.
	ArchiveURL string

	// BuildJobs is the parallelism passed to the build tool. Zero means
	// the tool's own default.
	BuildJobs int

	// InvalidValueError is returned when a single config value fails validation.
	// It wraps the value type's sentinel for errors.Is() compatibility.
	InvalidValueError struct {
		Sentinel error
		Value    string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig and collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// InvalidLoadOptionsError is returned when LoadOptions carry unusable paths.
	InvalidLoadOptionsError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// BuildDir is the build directory, relative to the working directory unless absolute.
		BuildDir BuildDirPath `json:"build_dir" mapstructure:"build_dir"`
		// Upstream locates the Redis sources.
		Upstream UpstreamConfig `json:"upstream" mapstructure:"upstream"`
		// Build configures the build tool.
		Build BuildConfig `json:"build" mapstructure:"build"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// UpstreamConfig locates the upstream repository and its archive.
	UpstreamConfig struct {
		GitURL     string     `json:"git_url" mapstructure:"git_url"`
		GitRef     GitRef     `json:"git_ref" mapstructure:"git_ref"`
		ArchiveURL ArchiveURL `json:"archive_url" mapstructure:"archive_url"`
	}

	// BuildConfig configures the build tool invocation.
	BuildConfig struct {
		// Command is split into words with shell quoting rules.
		Command string    `json:"command" mapstructure:"command"`
		Jobs    BuildJobs `json:"jobs" mapstructure:"jobs"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and detailed error output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BuildDir: DefaultBuildDir,
		Upstream: UpstreamConfig{
			GitURL:     DefaultGitURL,
			GitRef:     DefaultGitRef,
			ArchiveURL: DefaultArchiveURL,
		},
		Build: BuildConfig{
			Command: DefaultBuildCommand,
			Jobs:    0,
		},
		UI: UIConfig{
			Verbose: false,
		},
	}
}

// Source returns the upstream the build directory is made from.
func (c *Config) Source() upstream.Source {
	return upstream.Source{
		GitURL:     c.Upstream.GitURL,
		Ref:        c.Upstream.GitRef.String(),
		ArchiveURL: c.Upstream.ArchiveURL.String(),
	}
}

// resolve completes the ref/archive pair. The archive's object list decides
// what is pruned from the clone of the ref, so the two must name the same
// ref: an unset archive is derived from git_url and git_ref, and an archive
// given without its ref is rejected.
func (u *UpstreamConfig) resolve() error {
	if u.GitRef == "" {
		if u.ArchiveURL != "" {
			return &InvalidValueError{Sentinel: ErrUnpairedArchiveURL, Value: string(u.ArchiveURL)}
		}
		u.GitRef = DefaultGitRef
	}
	if u.ArchiveURL == "" {
		u.ArchiveURL = ArchiveURL(upstream.ArchiveURLFor(u.GitURL, u.GitRef.String()))
	}
	return nil
}

// derivedArchive reports whether the archive URL is the one resolve derives.
func (u UpstreamConfig) derivedArchive() bool {
	return string(u.ArchiveURL) == upstream.ArchiveURLFor(u.GitURL, u.GitRef.String())
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%v: %q", e.Sentinel, e.Value)
}

// Unwrap returns the value type's sentinel error.
func (e *InvalidValueError) Unwrap() error { return e.Sentinel }

// String returns the string representation of the BuildDirPath.
func (p BuildDirPath) String() string { return string(p) }

// IsValid returns whether the BuildDirPath is non-empty and not whitespace-only.
func (p BuildDirPath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidValueError{Sentinel: ErrInvalidBuildDirPath, Value: string(p)}}
	}
	return true, nil
}

// String returns the string representation of the GitRef.
func (r GitRef) String() string { return string(r) }

// IsValid returns whether the GitRef is non-empty and free of whitespace.
func (r GitRef) IsValid() (bool, []error) {
	if r == "" || strings.ContainsFunc(string(r), isSpace) {
		return false, []error{&InvalidValueError{Sentinel: ErrInvalidGitRef, Value: string(r)}}
	}
	return true, nil
}

// String returns the string representation of the ArchiveURL.
func (u ArchiveURL) String() string { return string(u) }

// IsValid returns whether the ArchiveURL is an absolute http or https URL.
func (u ArchiveURL) IsValid() (bool, []error) {
	parsed, err := url.Parse(string(u))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return false, []error{&InvalidValueError{Sentinel: ErrInvalidArchiveURL, Value: string(u)}}
	}
	return true, nil
}

// IsValid returns whether BuildJobs is non-negative.
func (j BuildJobs) IsValid() (bool, []error) {
	if j < 0 {
		return false, []error{&InvalidValueError{Sentinel: ErrInvalidBuildJobs, Value: fmt.Sprint(int(j))}}
	}
	return true, nil
}

// IsValid returns whether the Config has valid fields. It collects every
// field error instead of stopping at the first.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.BuildDir.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.Upstream.GitURL) == "" {
		errs = append(errs, errors.New("upstream.git_url must not be empty"))
	}
	if valid, fieldErrs := c.Upstream.GitRef.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Upstream.ArchiveURL.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.Build.Command) == "" {
		errs = append(errs, errors.New("build.command must not be empty"))
	}
	if valid, fieldErrs := c.Build.Jobs.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so both the
// aggregate and the field sentinels match errors.Is().
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Error implements the error interface for InvalidLoadOptionsError.
func (e *InvalidLoadOptionsError) Error() string {
	return fmt.Sprintf("invalid load options: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidLoadOptions for errors.Is() compatibility.
func (e *InvalidLoadOptionsError) Unwrap() error { return ErrInvalidLoadOptions }

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
