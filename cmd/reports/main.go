package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/skridlevsky/gavel/internal/reports"
)

const usage = `Usage: reports
Requires the following environment variables:

REPORT_DIR: root directory to store reports
REPORTS: JSON payload; object keyed by full repository name,
  each value the repository's health report encoded as a string
START_DATE: report collection start date`

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	baseDirectory := os.Getenv("REPORT_DIR")
	startDate := os.Getenv("START_DATE")

	parsed, err := reports.ParseReports(os.Getenv("REPORTS"))
	if err != nil {
		log.Fatalf("Failed to parse reports payload: %v", err)
	}
	if len(parsed) == 0 || baseDirectory == "" || startDate == "" {
		log.Fatal(usage)
	}

	created, err := reports.Store(parsed, startDate, baseDirectory)
	if err != nil {
		log.Fatalf("Failed to store reports: %v", err)
	}
	log.Printf("Created %d health report files", len(created))
}
