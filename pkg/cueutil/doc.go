// SPDX-License-Identifier: MPL-2.0

// Package cueutil checks documents against embedded CUE schemas.
//
// The module manifest (config.json), the configuration file and the build
// checkpoint (buildstate.cue) are all read the same way: the document is
// compiled, unified with one definition of its schema, validated and decoded.
// Documents whose file name ends in .json are read with the CUE JSON decoder,
// so a malformed manifest is reported as JSON rather than as CUE syntax.
//
//	//go:embed manifest_schema.cue
//	var manifestSchema []byte
//
//	schema := cueutil.NewSchema(manifestSchema, "#Manifest")
//	manifest, err := cueutil.Decode[Manifest](schema, data, cueutil.WithFilename(path))
//
// Problems in the document come back as a *DocumentError listing each
// offending field by its JSON path.
package cueutil
