package main

import (
	"os"

	"github.com/systragroup/SG-DataDashboard/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
