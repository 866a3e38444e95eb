// Command prs builds and inspects versioned indexes of biological databanks.
package main

import "github.com/mesh-intelligence/prs/internal/cli"

func main() {
	cli.Execute()
}
