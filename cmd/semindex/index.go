// cmd/semindex/index.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kdevlin/semindex/internal/cache"
	"github.com/kdevlin/semindex/internal/config"
	"github.com/kdevlin/semindex/internal/orchestrator"
)

var indexCmd = &cobra.Command{
	Use:   "index [repo-path]",
	Short: "Index a repository, incrementally if it has been indexed before",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	absPath, err := resolveRepoPath(args[0])
	if err != nil {
		return err
	}

	globalCfg, err := config.LoadConfig(globalConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load global config: %w", err)
	}

	repoCfg, err := config.LoadRepoConfig(absPath)
	if err != nil {
		return fmt.Errorf("failed to load repo config: %w\nRun 'semindex service add-project %s' first", err, absPath)
	}

	voyageKey := os.Getenv("VOYAGE_API_KEY")
	if voyageKey == "" {
		return fmt.Errorf("VOYAGE_API_KEY environment variable not set")
	}

	var redisCache *cache.RedisCache
	if globalCfg.Storage.RedisURL != "" {
		if redisCache, err = cache.NewRedisCache(globalCfg.Storage.RedisURL); err != nil {
			fmt.Fprintf(os.Stderr, "warning: Redis cache unavailable, continuing without it: %v\n", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	orch, err := orchestrator.New(globalCfg, voyageKey, redisCache)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	fmt.Printf("Indexing %s (%s)...\n", repoCfg.Name, absPath)

	result, err := orch.Run(cmd.Context(), absPath, repoCfg)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files processed: %d\n", result.FilesProcessed)
	fmt.Printf("  Files deleted:   %d\n", result.FilesDeleted)
	fmt.Printf("  Chunks created:  %d\n", result.ChunksCreated)
	fmt.Printf("  Points upserted: %d\n", result.PointsUpserted)
	fmt.Printf("  Orphans removed: %d\n", result.OrphansDeleted)
	fmt.Printf("  Tokens used:     %d (est. $%.4f)\n", result.TokensUsed, result.CostUSD)
	fmt.Printf("  Duration:        %s\n", result.Duration)

	if len(result.FailedFiles) > 0 {
		fmt.Printf("  Failed files: %d\n", len(result.FailedFiles))
		for _, f := range result.FailedFiles {
			fmt.Printf("    - %s\n", f)
		}
	}
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}

	return nil
}

// resolveRepoPath mirrors the teacher's index command: accepts a bare name
// (looked up under ~/repos) or any path, and returns its absolute form.
func resolveRepoPath(repoArg string) (string, error) {
	repoPath := repoArg
	if !filepath.IsAbs(repoPath) {
		if _, err := os.Stat(repoPath); os.IsNotExist(err) {
			homeDir, herr := os.UserHomeDir()
			if herr != nil {
				return "", fmt.Errorf("repository not found: %s (unable to check ~/repos)", repoPath)
			}
			repoPath = filepath.Join(homeDir, "repos", repoArg)
		}
	}

	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("repository not found: %s", absPath)
	}

	return absPath, nil
}
