package main

import (
	"os"

	"github.com/AegisAIOWNER/oanda-trader/cmd/trader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
