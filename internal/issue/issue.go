// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

type Id int

const (
	ModuleNotFoundId Id = iota + 1
	ManifestParseErrorId
	UpstreamLayoutErrorId
	AnchorNotFoundId
	AlreadyPatchedId
	FetchFailedId
	BuildToolFailedId
	BuildDirectoryExistsId
	BuildDirectoryLockedId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation for this issue type
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	var extraMd strings.Builder
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd.WriteString("\n\n## See also:\n")
		for _, link := range i.docLinks {
			extraMd.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			extraMd.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(string(i.mdMsg)+extraMd.String(), stylePath)
}

var (
	render = glamour.Render

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

A module directory passed on the command line does not exist, or it has no
config.json manifest.

## Expected layout:
~~~
mymodule/
  config.json      {"commands": ["{\"ping2\",ping2Command,1,\"r\",0,NULL,1,1,1,0,0}"]}
  sources/
    ping2.c
~~~

## Things you can try:
- Check the path you passed (relative paths resolve from the current directory)
- Validate the module without building:
~~~
$ cmdsplice validate ./mymodule
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse module manifest!

The module's config.json must be a JSON object whose "commands" field is a list
of strings. A single malformed entry is only skipped with a warning; this error
means the list itself is unusable.

## Common issues:
- "commands" is missing, or is an object instead of a list
- A list element is a number, an object or null instead of a string
- Trailing commas or unquoted keys (JSON is stricter than JavaScript)`,
	}

	upstreamLayoutErrorIssue = &Issue{
		id: UpstreamLayoutErrorId,
		mdMsg: `
# Unrecognized upstream layout!

The fetched upstream tree does not have the files or the object-list variable
the splicer depends on (src/Makefile with a REDIS_SERVER_OBJ= assignment).

## Things you can try:
- Check upstream.git_url, upstream.git_ref and upstream.archive_url in your config
- Start from a clean build directory:
~~~
$ cmdsplice --force ./mymodule
~~~`,
	}

	anchorNotFoundIssue = &Issue{
		id: AnchorNotFoundId,
		mdMsg: `
# Patch anchor not found!

One of the fixed anchor strings (prototype section marker in server.h, command
table opening in server.c, object list in Makefile) is missing. The upstream
version is most likely incompatible.

## Things you can try:
- Pin upstream.git_ref and upstream.archive_url to a compatible release
- Rebuild from scratch with --force after changing the upstream`,
	}

	alreadyPatchedIssue = &Issue{
		id: AlreadyPatchedId,
		mdMsg: `
# Tree already patched!

The target file already contains a custom commands block. Patching it again
would duplicate declarations, so the run was stopped.

## Things you can try:
- Discard the build directory and start over:
~~~
$ cmdsplice --force ./mymodule
~~~`,
	}

	fetchFailedIssue = &Issue{
		id: FetchFailedId,
		mdMsg: `
# Failed to fetch the upstream sources!

Cloning the upstream repository or downloading its archive failed.

## Things you can try:
- Check your network connection and retry; completed steps are skipped on rerun
- For private mirrors set GITHUB_TOKEN or GIT_TOKEN
- Check upstream.git_url and upstream.archive_url in your config`,
	}

	buildToolFailedIssue = &Issue{
		id: BuildToolFailedId,
		mdMsg: `
# The build failed!

The native build tool exited with a non-zero status. Its output above usually
points at the module source file that does not compile.

## Things you can try:
- Fix the module sources, then rerun the same command; fetched sources and
  already compiled upstream objects are reused
- Check that the function symbols declared in config.json exist in the sources`,
	}

	buildDirectoryExistsIssue = &Issue{
		id: BuildDirectoryExistsId,
		mdMsg: `
# Build directory already in use!

The build directory holds a finished build, a build for a different set of
modules, or files this tool did not create. Nothing was changed.

## Things you can try:
- Pass --force to delete and recreate it
- Point --build-dir at another directory`,
	}

	buildDirectoryLockedIssue = &Issue{
		id: BuildDirectoryLockedId,
		mdMsg: `
# Build directory is locked!

Another cmdsplice process is working in this build directory.

## Things you can try:
- Wait for the other process to finish
- Use a different --build-dir for parallel builds`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Check the CUE syntax of your config file
- Print the effective configuration:
~~~
$ cmdsplice config show
~~~`,
	}

	issues = map[Id]*Issue{
		moduleNotFoundIssue.Id():       moduleNotFoundIssue,
		manifestParseErrorIssue.Id():   manifestParseErrorIssue,
		upstreamLayoutErrorIssue.Id():  upstreamLayoutErrorIssue,
		anchorNotFoundIssue.Id():       anchorNotFoundIssue,
		alreadyPatchedIssue.Id():       alreadyPatchedIssue,
		fetchFailedIssue.Id():          fetchFailedIssue,
		buildToolFailedIssue.Id():      buildToolFailedIssue,
		buildDirectoryExistsIssue.Id(): buildDirectoryExistsIssue,
		buildDirectoryLockedIssue.Id(): buildDirectoryLockedIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
