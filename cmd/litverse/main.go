package main

import (
	"os"

	"github.com/binhbb2204/litverse/cli"
)

func main() {
	os.Exit(cli.Execute())
}
