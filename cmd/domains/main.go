package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/skridlevsky/gavel/internal/domains"
)

const usage = `Usage: domains
Requires the following environment variables:

LIST_DIR: root directory to store the domain list
CALENDAR_DIR: root directory to store calendar files
DOMAIN_LIST: JSON payload; array of domain records.
  Each record should have: name, expires, isExpired, isLocked, autoRenew, isOurDNS`

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	listDir := os.Getenv("LIST_DIR")
	calendarDir := os.Getenv("CALENDAR_DIR")

	domainList, err := domains.ParseDomainList(os.Getenv("DOMAIN_LIST"))
	if err != nil {
		log.Fatalf("Failed to parse domain list: %v", err)
	}
	if len(domainList) == 0 || (listDir == "" && calendarDir == "") {
		log.Fatal(usage)
	}

	if listDir != "" {
		path, err := domains.WriteList(domainList, listDir)
		if err != nil {
			log.Fatalf("Failed to write domain list: %v", err)
		}
		log.Printf("Created domain list file: %s", path)
	}

	if calendarDir != "" {
		updated, err := domains.UpdateCalendars(domainList, calendarDir)
		if err != nil {
			log.Fatalf("Failed to update calendars: %v", err)
		}
		log.Printf("Updated %d calendar files", len(updated))
	}
}
