// Command hearthctl is the operator CLI: a thin cobra wrapper over
// hearthrund's HTTP surface, grounded on
// Tutu-Engine-tutuengine/internal/cli's root/subcommand layout.
package main

import "github.com/hearthrun/hearthrun/internal/cli"

var version = "0"

func main() {
	cli.Execute(version)
}
