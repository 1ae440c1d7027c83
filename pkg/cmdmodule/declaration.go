// SPDX-License-Identifier: MPL-2.0

package cmdmodule

import (
	"fmt"
	"regexp"
	"strings"
)

// declarationFieldCount is the number of positional fields in a command
// table record.
const declarationFieldCount = 11

var (
	// declarationPattern is the complete grammar of an accepted entry, e.g.
	// {"customping",customPingCommand,4,"r",0,NULL,1,1,1,0,0}
	declarationPattern = regexp.MustCompile(`^\{"(\w+)",(\w+),(\d+),"(\w+)",0,NULL,1,1,1,0,0\}$`)

	quotedWordPattern = regexp.MustCompile(`^"\w+"$`)
	wordPattern       = regexp.MustCompile(`^\w+$`)
	digitsPattern     = regexp.MustCompile(`^\d+$`)

	// fixedFields holds the literal value required at positions 4 through 10.
	fixedFields = [...]string{"0", "NULL", "1", "1", "1", "0", "0"}
)

type (
	// FunctionName is the C symbol implementing a command.
	FunctionName string

	// Declaration is a command table entry accepted by the grammar.
	Declaration struct {
		// Raw is the entry exactly as written in the manifest. It is inserted
		// verbatim into the command table.
		Raw string
		// Name is the command name clients type (first field, unquoted).
		Name string
		// FunctionName is the implementing C function (second field).
		FunctionName FunctionName
		// Arity is the declared argument count (third field) as written.
		// The grammar bounds it to digits only; its magnitude is left to the
		// compiler.
		Arity string
		// Flags is the command flag string (fourth field, unquoted).
		Flags string
	}

	// Verdict is the tagged result of classifying one manifest entry:
	// Accepted(Declaration) or Rejected(Reason).
	Verdict struct {
		// Entry is the manifest entry that was classified.
		Entry string
		// Declaration is set only for accepted entries.
		Declaration *Declaration
		// Reason explains a rejection; empty for accepted entries.
		Reason string
	}
)

// String returns the string representation of the FunctionName.
func (f FunctionName) String() string { return string(f) }

// Prototype returns the C prototype declared for the function.
func (f FunctionName) Prototype() string {
	return "void " + string(f) + "(client *c);"
}

// Accepted reports whether the entry matched the grammar.
func (v Verdict) Accepted() bool { return v.Declaration != nil }

// ParseDeclaration classifies a single manifest entry. It never repairs an
// entry: anything short of an exact grammar match is rejected with a reason.
func ParseDeclaration(entry string) Verdict {
	m := declarationPattern.FindStringSubmatch(entry)
	if m == nil {
		return Verdict{Entry: entry, Reason: rejectionReason(entry)}
	}

	return Verdict{
		Entry: entry,
		Declaration: &Declaration{
			Raw:          entry,
			Name:         m[1],
			FunctionName: FunctionName(m[2]),
			Arity:        m[3],
			Flags:        m[4],
		},
	}
}

// ClassifyDeclarations classifies every entry, preserving input order.
func ClassifyDeclarations(entries []string) []Verdict {
	verdicts := make([]Verdict, 0, len(entries))
	for _, entry := range entries {
		verdicts = append(verdicts, ParseDeclaration(entry))
	}
	return verdicts
}

// rejectionReason explains why entry does not match declarationPattern.
// It only produces a message; classification is decided by the pattern.
func rejectionReason(entry string) string {
	if !strings.HasPrefix(entry, "{") || !strings.HasSuffix(entry, "}") {
		return "not a brace-delimited record"
	}

	fields := strings.Split(entry[1:len(entry)-1], ",")
	if len(fields) != declarationFieldCount {
		return fmt.Sprintf("expected %d fields, got %d", declarationFieldCount, len(fields))
	}

	switch {
	case !quotedWordPattern.MatchString(fields[0]):
		return fmt.Sprintf("field 1 (command name) must be a quoted identifier, got %s", fields[0])
	case !wordPattern.MatchString(fields[1]):
		return fmt.Sprintf("field 2 (function) must be an unquoted identifier, got %s", fields[1])
	case !digitsPattern.MatchString(fields[2]):
		return fmt.Sprintf("field 3 (arity) must be a non-negative integer, got %s", fields[2])
	case !quotedWordPattern.MatchString(fields[3]):
		return fmt.Sprintf("field 4 (flags) must be a quoted word, got %s", fields[3])
	}

	for i, want := range fixedFields {
		if got := fields[i+4]; got != want {
			return fmt.Sprintf("field %d must be the literal %s, got %s", i+5, want, got)
		}
	}

	// Whitespace or other characters the field checks above tolerate
	return "does not match the command record grammar"
}
