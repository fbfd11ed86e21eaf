package main

import (
	"os"

	"github.com/logc/scorecard-ocr/cmd/scorecard-ocr/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
