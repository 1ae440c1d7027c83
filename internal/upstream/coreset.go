// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/cmdsplice/cmdsplice/pkg/cmdmodule"
)

// ObjectListVar is the Makefile variable holding the server's own objects.
const ObjectListVar = "REDIS_SERVER_OBJ"

var (
	// ExtraCoreObjects are built by the upstream Makefile outside
	// ObjectListVar and are protected as well.
	ExtraCoreObjects = []cmdmodule.ObjectFileName{"redis-benchmark.o", "redis-check-aof.o", "redis-cli.o"}

	// ExemptSources are event-loop backends. The upstream build picks one
	// per platform, so none of them is ever pruned.
	ExemptSources = []string{"ae_epoll.c", "ae_evport.c", "ae_kqueue.c", "ae_select.c"}
)

// CoreSet is the set of upstream object files that must survive pruning.
type CoreSet map[cmdmodule.ObjectFileName]struct{}

// NewCoreSet returns a CoreSet of the given objects.
func NewCoreSet(objects ...cmdmodule.ObjectFileName) CoreSet {
	set := make(CoreSet, len(objects))
	for _, obj := range objects {
		set[obj] = struct{}{}
	}
	return set
}

// LoadCoreSet reads ObjectListVar from the Makefile at path and adds
// ExtraCoreObjects.
func LoadCoreSet(makefilePath string) (CoreSet, error) {
	data, err := os.ReadFile(makefilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &UpstreamLayoutError{Path: makefilePath, Reason: "build configuration not found"}
		}
		return nil, fmt.Errorf("failed to read upstream makefile: %w", err)
	}

	objects, ok := parseObjectList(data)
	if !ok {
		return nil, &UpstreamLayoutError{Path: makefilePath, Reason: ObjectListVar + "= assignment not found"}
	}

	set := NewCoreSet(objects...)
	for _, obj := range ExtraCoreObjects {
		set[obj] = struct{}{}
	}
	return set, nil
}

// parseObjectList finds the first "REDIS_SERVER_OBJ=" line and returns its
// whitespace-separated words. Backslash continuations are followed.
func parseObjectList(makefile []byte) ([]cmdmodule.ObjectFileName, bool) {
	prefix := ObjectListVar + "="
	scanner := bufio.NewScanner(bytes.NewReader(makefile))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		found bool
		value strings.Builder
	)
	for scanner.Scan() {
		line := scanner.Text()
		if !found {
			rest, ok := strings.CutPrefix(line, prefix)
			if !ok {
				continue
			}
			found = true
			line = rest
		}
		cont, more := strings.CutSuffix(line, "\\")
		value.WriteString(cont)
		value.WriteByte(' ')
		if !more {
			break
		}
	}
	if !found {
		return nil, false
	}

	var objects []cmdmodule.ObjectFileName
	for _, word := range strings.Fields(value.String()) {
		objects = append(objects, cmdmodule.ObjectFileName(word))
	}
	return objects, true
}

// Contains reports whether obj is protected.
func (c CoreSet) Contains(obj cmdmodule.ObjectFileName) bool {
	_, ok := c[obj]
	return ok
}

// ProtectsSource reports whether the C source name compiles to a protected
// object. Non-C files are never protected.
func (c CoreSet) ProtectsSource(name string) bool {
	obj, ok := cmdmodule.ObjectName(name)
	return ok && c.Contains(obj)
}

// IsExemptSource reports whether name is one of ExemptSources.
func IsExemptSource(name string) bool {
	return slices.Contains(ExemptSources, name)
}
