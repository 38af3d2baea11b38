// cmd/semindex/search.go
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kdevlin/semindex/internal/config"
	"github.com/kdevlin/semindex/internal/search"
)

var (
	searchCollection string
	searchKind       string
	searchLimit      int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search an indexed collection by meaning",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchCollection, "collection", "", "Collection to search (required)")
	searchCmd.Flags().StringVar(&searchKind, "kind", "all", "Restrict to entity, relation, chat, or all")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchCollection == "" {
		return fmt.Errorf("--collection is required")
	}

	cfg, err := config.LoadConfig(globalConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load global config: %w", err)
	}

	voyageKey := os.Getenv("VOYAGE_API_KEY")
	if voyageKey == "" {
		return fmt.Errorf("VOYAGE_API_KEY environment variable not set")
	}

	handler, err := search.NewHandler(cfg, voyageKey, nil)
	if err != nil {
		return fmt.Errorf("failed to create search handler: %w", err)
	}
	defer handler.Close()

	hits, err := handler.Search(cmd.Context(), searchCollection, args[0], searchLimit, search.KindFilter(searchKind))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
