// Package domains maintains the organization's domain inventory files:
// a markdown table of registered domains and per-year expiry calendars.
package domains

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DomainRecord is one registered domain as reported by the registrar
// export workflow.
type DomainRecord struct {
	Name      string `json:"name"`
	Expires   string `json:"expires"`
	IsExpired bool   `json:"isExpired"`
	IsLocked  bool   `json:"isLocked"`
	AutoRenew bool   `json:"autoRenew"`
	IsOurDNS  bool   `json:"isOurDNS"`
}

// ParseDomainList decodes a registrar export payload. CI sometimes
// passes the JSON array double-encoded as a string, so a string result
// is decoded a second time.
func ParseDomainList(payload string) ([]DomainRecord, error) {
	if payload == "" {
		payload = "[]"
	}

	var domains []DomainRecord
	if err := json.Unmarshal([]byte(payload), &domains); err == nil {
		return domains, nil
	}

	var inner string
	if err := json.Unmarshal([]byte(payload), &inner); err != nil {
		return nil, fmt.Errorf("invalid domain list payload: %w", err)
	}
	slog.Warn("Domain list was double-encoded, parsing again")
	if err := json.Unmarshal([]byte(inner), &domains); err != nil {
		return nil, fmt.Errorf("invalid domain list payload: %w", err)
	}
	return domains, nil
}

// WriteList writes the domain table to <baseDirectory>/domains.md and
// returns the written path.
func WriteList(domains []DomainRecord, baseDirectory string) (string, error) {
	if err := os.MkdirAll(baseDirectory, 0o755); err != nil {
		return "", fmt.Errorf("failed to prepare directory %s: %w", baseDirectory, err)
	}

	sorted := make([]DomainRecord, len(domains))
	copy(sorted, domains)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var sb strings.Builder
	sb.WriteString("# Domain List\n\n")
	fmt.Fprintf(&sb, "Last updated: %s\n\n", time.Now().UTC().Format("2006-01-02"))
	sb.WriteString("| Domain | Expires | Expired | Locked | Auto-Renew | NC DNS |\n")
	sb.WriteString("|--------|---------|---------|--------|------------|---------|\n")

	for _, domain := range sorted {
		expires := domain.Expires
		if expires == "" {
			expires = "N/A"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
			domain.Name,
			expires,
			check(domain.IsExpired),
			check(domain.IsLocked),
			check(domain.AutoRenew),
			check(domain.IsOurDNS),
		)
	}

	filePath := filepath.Join(baseDirectory, "domains.md")
	if err := os.WriteFile(filePath, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	slog.Info("Updated domain list", "path", filePath, "domains", len(sorted))
	return filePath, nil
}

func check(set bool) string {
	if set {
		return "✅"
	}
	return ""
}
