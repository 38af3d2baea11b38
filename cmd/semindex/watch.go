// cmd/semindex/watch.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kdevlin/semindex/internal/cache"
	"github.com/kdevlin/semindex/internal/config"
	"github.com/kdevlin/semindex/internal/orchestrator"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a repository and re-index on change",
}

var watchStartCmd = &cobra.Command{
	Use:   "start [repo-path]",
	Short: "Watch a repository's filesystem and trigger incremental re-indexes",
	Long: `Watches a repository with fsnotify and runs an incremental Orchestrator
pass once events for it go quiet for the debounce window, instead of
re-walking on every single write syscall.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatchStart,
}

var watchDebounce string

func init() {
	watchStartCmd.Flags().StringVar(&watchDebounce, "debounce", "2s", "Quiet period after the last change before re-indexing")
	watchCmd.AddCommand(watchStartCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatchStart(cmd *cobra.Command, args []string) error {
	debounce, err := time.ParseDuration(watchDebounce)
	if err != nil {
		return fmt.Errorf("invalid --debounce: %w", err)
	}

	absPath, err := resolveRepoPath(args[0])
	if err != nil {
		return err
	}

	repoCfg, err := config.LoadRepoConfig(absPath)
	if err != nil {
		return fmt.Errorf("failed to load repo config: %w\nRun 'semindex service add-project %s' first", err, absPath)
	}

	globalCfg, err := config.LoadConfig(globalConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load global config: %w", err)
	}

	voyageKey := os.Getenv("VOYAGE_API_KEY")
	if voyageKey == "" {
		return fmt.Errorf("VOYAGE_API_KEY environment variable not set")
	}

	var redisCache *cache.RedisCache
	if globalCfg.Storage.RedisURL != "" {
		if redisCache, err = cache.NewRedisCache(globalCfg.Storage.RedisURL); err == nil {
			defer redisCache.Close()
		}
	}

	orch, err := orchestrator.New(globalCfg, voyageKey, redisCache)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, absPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", absPath, err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("watching repository", "path", absPath, "debounce", debounce)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	return runDebouncedLoop(ctx, watcher, debounce, logger, func() {
		result, err := orch.Run(ctx, absPath, repoCfg)
		if err != nil {
			logger.Error("incremental re-index failed", "error", err)
			return
		}
		logger.Info("incremental re-index complete",
			"files_processed", result.FilesProcessed,
			"files_deleted", result.FilesDeleted,
			"chunks_created", result.ChunksCreated,
		)
	})
}

// runDebouncedLoop batches fsnotify events: each event resets a timer, and
// trigger only fires once the stream has been quiet for `debounce`. Grounded
// on the original Python watcher's debounce window, expressed here with a
// time.Timer instead of a scheduled callback.
func runDebouncedLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, logger *slog.Logger, trigger func()) error {
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if shouldIgnoreEvent(event) {
				continue
			}
			if !timer.Stop() && pending {
				<-timer.C
			}
			timer.Reset(debounce)
			pending = true

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-timer.C:
			if pending {
				pending = false
				trigger()
			}
		}
	}
}

func shouldIgnoreEvent(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	return strings.HasPrefix(base, ".") || strings.Contains(event.Name, ".claude-indexer")
}

// addWatchDirs registers every directory under root with the watcher;
// fsnotify only watches the directories it's told about, not recursively.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if base != "." && strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}
		if base == "node_modules" || base == "venv" || base == "__pycache__" {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
