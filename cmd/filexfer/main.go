package main

import (
	"os"

	"github.com/sheerbytes/filexfer/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
