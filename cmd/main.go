package main

import (
	"os"

	"github.com/yungbote/recipes-assistant-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
