package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/skridlevsky/gavel/internal/archive"
	"github.com/skridlevsky/gavel/internal/config"
	"github.com/skridlevsky/gavel/internal/github"
	"github.com/skridlevsky/gavel/internal/tally"
)

const usage = "Usage: votes [all|recent] jsonDir [--repos=org/repo1,org/repo2] [--md=mdDir] [--removeTag=tag1,tag2]"

type cliArgs struct {
	mode         tally.RefreshMode
	jsonDir      string
	markdownDir  string
	repositories []string
	removeTags   []string
}

func parseArgs(args []string) (*cliArgs, error) {
	parsed := &cliArgs{mode: tally.ModeRecent}
	for _, arg := range args {
		switch {
		case arg == "all":
			parsed.mode = tally.ModeAll
		case arg == "recent":
			parsed.mode = tally.ModeRecent
		case strings.HasPrefix(arg, "--repos="):
			parsed.repositories = strings.Split(strings.TrimPrefix(arg, "--repos="), ",")
		case strings.HasPrefix(arg, "--md="):
			parsed.markdownDir = strings.TrimPrefix(arg, "--md=")
		case strings.HasPrefix(arg, "--removeTag="):
			parsed.removeTags = strings.Split(strings.TrimPrefix(arg, "--removeTag="), ",")
		default:
			parsed.jsonDir = arg
		}
	}
	if parsed.jsonDir == "" {
		return nil, fmt.Errorf("missing required jsonDir parameter")
	}
	if len(parsed.repositories) == 0 {
		return nil, fmt.Errorf("missing required --repos parameter")
	}
	return parsed, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	args, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Println(err)
		log.Fatal(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()

	store, err := tally.NewStore(args.jsonDir, args.markdownDir)
	if err != nil {
		log.Fatalf("Failed to open record tree: %v", err)
	}

	var snapshots tally.Archiver
	if cfg.DatabaseURL != "" {
		db, err := archive.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to archive: %v", err)
		}
		defer db.Close()
		snapshots = db
	}

	runner := tally.NewRunner(
		github.NewClient(cfg.GitHubToken),
		store,
		tally.NewNormalizer(tally.NormalizerConfig{
			BotLogin:   cfg.BotLogin,
			RemoveTags: args.removeTags,
		}),
		snapshots,
		tally.Options{
			Mode:         args.mode,
			Repositories: args.repositories,
			BotLogin:     cfg.BotLogin,
			OpenLabel:    cfg.OpenVoteLabel,
		},
	)

	if err := runner.Run(ctx); err != nil {
		log.Fatalf("Vote run failed: %v", err)
	}
	log.Println("Done.")
}
