// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/cmdsplice/cmdsplice/cmd/cmdsplice"

func main() {
	cmd.Execute()
}
