package main

import (
	"os"

	"relink/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
