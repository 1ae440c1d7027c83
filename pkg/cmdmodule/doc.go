// SPDX-License-Identifier: MPL-2.0

// Package cmdmodule loads command modules: directories that supply new
// dispatch-table entries to the upstream server.
//
// A module is a directory with this layout:
//
//	mymodule/
//	  config.json   {"commands": ["{\"ping2\",ping2Command,1,\"r\",0,NULL,1,1,1,0,0}", ...]}
//	  sources/      any files; *.c files are compiled, everything is copied
//
// # Manifest Parsing
//
// Each manifest entry is classified against a fixed structural grammar: a
// brace-delimited record of eleven positional fields
//
//	{"<name>",<function>,<arity>,"<flags>",0,NULL,1,1,1,0,0}
//
// [ParseDeclaration] returns a [Verdict] that is either accepted (carrying a
// [Declaration]) or rejected (carrying a reason). Rejected entries are skipped
// with a warning; they never fail a build. Entries are never repaired.
//
// # File Manifest
//
// [Load] lists sources/* and derives one object file name per C source
// ([ObjectName]). A missing module directory or manifest yields
// [ModuleNotFoundError]; a manifest whose command list is not a list of
// strings yields [ManifestParseError].
package cmdmodule
