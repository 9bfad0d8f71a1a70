// Command vmcatalog browses the Azure Marketplace virtual machine image
// catalog and exports image references as infrastructure code.
package main

import (
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
