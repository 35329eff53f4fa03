package main

import (
	"os"

	"github.com/ppiankov/alignmap/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
