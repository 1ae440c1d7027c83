// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Two layers live here: ActionableError (operation, resource, suggestions and
// cause for a single failure) and the issue catalog, a set of Markdown
// remediation pages keyed by Id, one per error class of the splice pipeline.
package issue
