package main

import (
	"os"

	"github.com/perastrom/koto/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
