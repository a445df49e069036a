package main

import (
	"os"

	"github.com/rleer/rmq-cli-sub002/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
