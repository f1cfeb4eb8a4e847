package main

import (
	"os"

	"github.com/driftsip/orderdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
