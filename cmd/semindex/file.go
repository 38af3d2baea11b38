// cmd/semindex/file.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kdevlin/semindex/internal/config"
	"github.com/kdevlin/semindex/internal/orchestrator"
)

var fileCmd = &cobra.Command{
	Use:   "file [path]",
	Short: "Re-index a single file",
	Long: `Re-indexes exactly one file. Used by Claude Code's PostToolUse hook
(see 'hooks install') to keep the index current between full 'index' runs
without re-walking the whole tree.`,
	Args: cobra.ExactArgs(1),
	RunE: runFile,
}

func init() {
	rootCmd.AddCommand(fileCmd)
}

func runFile(cmd *cobra.Command, args []string) error {
	absFile, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	repoPath, err := findRepoRoot(filepath.Dir(absFile))
	if err != nil {
		return fmt.Errorf("file %s is not inside a configured repository: %w", absFile, err)
	}

	repoCfg, err := config.LoadRepoConfig(repoPath)
	if err != nil {
		return fmt.Errorf("failed to load repo config for %s: %w", repoPath, err)
	}

	relFile, err := filepath.Rel(repoPath, absFile)
	if err != nil {
		return fmt.Errorf("compute relative path: %w", err)
	}

	// Scope this run to exactly the one file by overriding the include set;
	// the Orchestrator's normal change-detection/dedup/embed/upsert path
	// handles it identically to a file caught by a full 'index' run.
	scoped := *repoCfg
	scoped.Include = []string{filepath.ToSlash(relFile)}
	scoped.Exclude = nil

	globalCfg, err := config.LoadConfig(globalConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load global config: %w", err)
	}

	voyageKey := os.Getenv("VOYAGE_API_KEY")
	if voyageKey == "" {
		return fmt.Errorf("VOYAGE_API_KEY environment variable not set")
	}

	orch, err := orchestrator.New(globalCfg, voyageKey, nil)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	result, err := orch.Run(cmd.Context(), repoPath, &scoped)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "[semindex] re-indexed %s (%d chunks)\n", relFile, result.ChunksCreated)
	return nil
}

// findRepoRoot walks upward from dir looking for .claude-indexer.yaml.
func findRepoRoot(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, ".claude-indexer.yaml")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .claude-indexer.yaml found in any parent directory")
		}
		dir = parent
	}
}
