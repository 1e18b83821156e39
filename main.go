// SPDX-License-Identifier: MPL-2.0

package main

import cmd "classkit-cli/cmd/classkit"

func main() {
	cmd.Execute()
}
