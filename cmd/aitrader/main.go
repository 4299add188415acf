package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/2679373161/AI-Trader/cmd/aitrader/cmd"
)

func main() {
	// optional; agent endpoints and keys often live in a local .env
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
