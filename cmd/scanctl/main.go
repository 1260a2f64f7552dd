package main

import (
	"os"

	"github.com/mdthewzrd/chartscan/cmd/scanctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
