// SPDX-License-Identifier: MPL-2.0

package cmdmodule

import (
	"strings"
	"testing"
)

func TestParseDeclaration_Accepted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		entry    string
		name     string
		function FunctionName
		arity    string
		flags    string
	}{
		{`{"foo",fooCmd,1,"r",0,NULL,1,1,1,0,0}`, "foo", "fooCmd", "1", "r"},
		{`{"bar",barCmd,2,"w",0,NULL,1,1,1,0,0}`, "bar", "barCmd", "2", "w"},
		{`{"customping",customPingCommand,4,"r",0,NULL,1,1,1,0,0}`, "customping", "customPingCommand", "4", "r"},
		{`{"x_y",x_y_2,10,"rF",0,NULL,1,1,1,0,0}`, "x_y", "x_y_2", "10", "rF"},
		{`{"huge",hugeCmd,99999999999999999999,"r",0,NULL,1,1,1,0,0}`, "huge", "hugeCmd", "99999999999999999999", "r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := ParseDeclaration(tt.entry)
			if !v.Accepted() {
				t.Fatalf("ParseDeclaration(%q) rejected: %s", tt.entry, v.Reason)
			}
			d := v.Declaration
			if d.Raw != tt.entry {
				t.Errorf("Raw = %q, want the entry verbatim", d.Raw)
			}
			if d.Name != tt.name || d.FunctionName != tt.function || d.Arity != tt.arity || d.Flags != tt.flags {
				t.Errorf("got %+v", *d)
			}
			if v.Reason != "" {
				t.Errorf("accepted verdict has reason %q", v.Reason)
			}
		})
	}
}

func TestParseDeclaration_Rejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		entry      string
		wantReason string
	}{
		{"missing trailing field with stray quote", `{"bad",badCmd,1,"r",0,NULL,1,1,1,0}"`, "brace-delimited"},
		{"missing trailing field", `{"bad",badCmd,1,"r",0,NULL,1,1,1,0}`, "expected 11 fields, got 10"},
		{"extra field", `{"bad",badCmd,1,"r",0,NULL,1,1,1,0,0,0}`, "expected 11 fields, got 12"},
		{"unquoted name", `{bad,badCmd,1,"r",0,NULL,1,1,1,0,0}`, "field 1"},
		{"quoted function", `{"bad","badCmd",1,"r",0,NULL,1,1,1,0,0}`, "field 2"},
		{"negative arity", `{"bad",badCmd,-2,"r",0,NULL,1,1,1,0,0}`, "field 3"},
		{"unquoted flags", `{"bad",badCmd,1,r,0,NULL,1,1,1,0,0}`, "field 4"},
		{"non-literal in fixed position", `{"bad",badCmd,1,"r",0,NULL,1,1,2,0,0}`, "field 9 must be the literal 1"},
		{"nullptr instead of NULL", `{"bad",badCmd,1,"r",0,nullptr,1,1,1,0,0}`, "field 6 must be the literal NULL"},
		{"whitespace between fields", `{"bad", badCmd,1,"r",0,NULL,1,1,1,0,0}`, "field 2"},
		{"empty", ``, "brace-delimited"},
		{"commentary", `// disabled for now`, "brace-delimited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := ParseDeclaration(tt.entry)
			if v.Accepted() {
				t.Fatalf("ParseDeclaration(%q) accepted %+v", tt.entry, *v.Declaration)
			}
			if !strings.Contains(v.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to contain %q", v.Reason, tt.wantReason)
			}
			if v.Entry != tt.entry {
				t.Errorf("Entry = %q, want %q", v.Entry, tt.entry)
			}
		})
	}
}

func TestClassifyDeclarations_PreservesOrder(t *testing.T) {
	t.Parallel()

	entries := []string{
		`{"b",bCmd,1,"r",0,NULL,1,1,1,0,0}`,
		`not a record`,
		`{"a",aCmd,1,"r",0,NULL,1,1,1,0,0}`,
	}
	verdicts := ClassifyDeclarations(entries)
	if len(verdicts) != 3 {
		t.Fatalf("got %d verdicts, want 3", len(verdicts))
	}
	for i, v := range verdicts {
		if v.Entry != entries[i] {
			t.Errorf("verdicts[%d].Entry = %q, want %q", i, v.Entry, entries[i])
		}
	}
	if !verdicts[0].Accepted() || verdicts[1].Accepted() || !verdicts[2].Accepted() {
		t.Errorf("unexpected acceptance pattern: %v %v %v",
			verdicts[0].Accepted(), verdicts[1].Accepted(), verdicts[2].Accepted())
	}
}

func TestFunctionName_Prototype(t *testing.T) {
	t.Parallel()

	if got, want := FunctionName("fooCmd").Prototype(), "void fooCmd(client *c);"; got != want {
		t.Errorf("Prototype() = %q, want %q", got, want)
	}
}
