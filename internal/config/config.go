package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // optional; enables the snapshot archive
	GitHubToken string

	// Vote tallying
	BotLogin      string
	OpenVoteLabel string
	Repositories  string // comma-separated owner/name list

	// Record tree locations
	VoteJSONDir     string
	VoteMarkdownDir string

	// API server
	BadgeBaseURL string
	CacheTTL     time.Duration
}

// Load reads configuration from environment variables.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	ghToken := os.Getenv("GITHUB_TOKEN")
	if ghToken == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN is required")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		GitHubToken: ghToken,

		BotLogin:      getEnv("BOT_LOGIN", "haus-rules-bot[bot]"),
		OpenVoteLabel: getEnv("OPEN_VOTE_LABEL", "vote/open"),
		Repositories:  os.Getenv("VOTE_REPOS"),

		VoteJSONDir:     getEnv("VOTE_JSON_DIR", "votes"),
		VoteMarkdownDir: os.Getenv("VOTE_MD_DIR"),

		BadgeBaseURL: getEnv("BADGE_BASE_URL", "https://img.shields.io/badge"),
		CacheTTL:     getDuration("CACHE_TTL", 5*time.Minute),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
