// SPDX-License-Identifier: MPL-2.0

package cmdmodule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// IssueTypeStructure categorizes structural problems (missing files, wrong layout).
	IssueTypeStructure ValidationIssueType = "structure"
	// IssueTypeManifest categorizes config.json decoding problems.
	IssueTypeManifest ValidationIssueType = "manifest"
	// IssueTypeDeclaration categorizes rejected command entries.
	IssueTypeDeclaration ValidationIssueType = "declaration"
	// IssueTypeDuplicate categorizes names declared more than once.
	IssueTypeDuplicate ValidationIssueType = "duplicate"
	// IssueTypeSecurity categorizes symlinks in the sources directory.
	IssueTypeSecurity ValidationIssueType = "security"
)

type (
	// ValidationIssueType categorizes module validation issues.
	ValidationIssueType string

	// ValidationIssue is a single problem found in a module.
	//
	//nolint:errname // Intentionally named Issue, not Error - semantic domain type
	ValidationIssue struct {
		// Type categorizes the issue.
		Type ValidationIssueType
		// Message describes the specific problem.
		Message string
		// Path is the module-relative path the issue refers to (optional).
		Path string
	}

	// ValidationResult is the outcome of validating one module.
	ValidationResult struct {
		// Valid is false when the module cannot take part in a build.
		Valid bool
		// ModulePath is the absolute module directory.
		ModulePath string
		// Module is the loaded module; nil when loading failed.
		Module *CommandModule
		// Verdicts holds the classification of every manifest entry.
		Verdicts []Verdict
		// Issues are problems that make the module unusable.
		Issues []ValidationIssue
		// Warnings are problems a build tolerates (rejected entries, duplicates).
		Warnings []ValidationIssue
	}
)

// Error implements the error interface for ValidationIssue.
func (v ValidationIssue) Error() string {
	if v.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", v.Type, v.Path, v.Message)
	}
	return fmt.Sprintf("[%s] %s", v.Type, v.Message)
}

// AddIssue records a problem that invalidates the module.
func (r *ValidationResult) AddIssue(issueType ValidationIssueType, message, path string) {
	r.Issues = append(r.Issues, ValidationIssue{Type: issueType, Message: message, Path: path})
	r.Valid = false
}

// AddWarning records a problem that does not invalidate the module.
func (r *ValidationResult) AddWarning(issueType ValidationIssueType, message, path string) {
	r.Warnings = append(r.Warnings, ValidationIssue{Type: issueType, Message: message, Path: path})
}

// Accepted returns the accepted declarations in manifest order.
func (r *ValidationResult) Accepted() []Declaration {
	var decls []Declaration
	for _, v := range r.Verdicts {
		if v.Accepted() {
			decls = append(decls, *v.Declaration)
		}
	}
	return decls
}

// Validate loads the module at dir and reports every problem found instead
// of stopping at the first one. The error return is reserved for failures
// that prevent validation itself.
func Validate(dir string) (*ValidationResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	result := &ValidationResult{Valid: true, ModulePath: absDir}

	module, err := Load(absDir)
	if err != nil {
		var notFound *ModuleNotFoundError
		var parseErr *ManifestParseError
		switch {
		case errors.As(err, &notFound):
			result.AddIssue(IssueTypeStructure, notFound.Reason, relTo(absDir, notFound.Path))
		case errors.As(err, &parseErr):
			result.AddIssue(IssueTypeManifest, parseErr.Err.Error(), ManifestFileName)
		default:
			return nil, err
		}
		return result, nil
	}
	result.Module = module

	if len(module.SourceFiles) == 0 {
		result.AddWarning(IssueTypeStructure, "module has no files under "+SourcesDir+"/", "")
	}
	for _, src := range module.SourceFiles {
		if info, lerr := os.Lstat(src); lerr == nil && info.Mode()&os.ModeSymlink != 0 {
			result.AddWarning(IssueTypeSecurity, "symlink is copied as its target's content", relTo(absDir, src))
		}
	}

	result.Verdicts = module.Classify()
	seenFuncs := make(map[FunctionName]int)
	seenNames := make(map[string]int)
	for i, v := range result.Verdicts {
		path := fmt.Sprintf("%s:commands[%d]", ManifestFileName, i)
		if !v.Accepted() {
			result.AddWarning(IssueTypeDeclaration, v.Reason+": "+v.Entry, path)
			continue
		}
		if first, dup := seenFuncs[v.Declaration.FunctionName]; dup {
			result.AddWarning(IssueTypeDuplicate,
				fmt.Sprintf("function %s already declared by commands[%d]", v.Declaration.FunctionName, first), path)
		} else {
			seenFuncs[v.Declaration.FunctionName] = i
		}
		if first, dup := seenNames[v.Declaration.Name]; dup {
			result.AddWarning(IssueTypeDuplicate,
				fmt.Sprintf("command %q already declared by commands[%d]", v.Declaration.Name, first), path)
		} else {
			seenNames[v.Declaration.Name] = i
		}
	}

	if len(result.Accepted()) == 0 {
		result.AddWarning(IssueTypeDeclaration, "no valid command definitions", ManifestFileName)
	}

	return result, nil
}

// relTo returns path relative to root, or path itself when that fails.
func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return ""
	}
	return rel
}
