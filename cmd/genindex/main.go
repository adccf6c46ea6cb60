package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/skridlevsky/gavel/internal/tally"
)

const usage = "Usage: genindex jsonDir mdDir indexFile"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if len(os.Args) < 4 {
		log.Fatal(usage)
	}
	jsonDir, markdownDir, indexFile := os.Args[1], os.Args[2], os.Args[3]

	if err := tally.BuildIndex(jsonDir, markdownDir, indexFile); err != nil {
		log.Fatalf("Failed to build vote index: %v", err)
	}
}
