// Package main is the entry point for the calbot CLI.
package main

import (
	"os"

	"github.com/calbot-ai/calbot/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
