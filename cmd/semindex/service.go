// cmd/semindex/service.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kdevlin/semindex/internal/config"
	"github.com/kdevlin/semindex/internal/store"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Register repositories and inspect the running index service",
}

var serviceAddProjectCmd = &cobra.Command{
	Use:   "add-project [repo-path]",
	Short: "Write a .claude-indexer.yaml for a repository, detecting its languages",
	Args:  cobra.ExactArgs(1),
	RunE:  runServiceAddProject,
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the vector store's collection status",
	RunE:  runServiceStatus,
}

var serviceStatusCollection string

func init() {
	serviceStatusCmd.Flags().StringVar(&serviceStatusCollection, "collection", "chunks", "Collection to inspect")
	serviceCmd.AddCommand(serviceAddProjectCmd, serviceStatusCmd)
	rootCmd.AddCommand(serviceCmd)
}

func runServiceAddProject(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", absPath)
	}

	configPath := filepath.Join(absPath, ".claude-indexer.yaml")
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
		return nil
	}

	repoName := filepath.Base(absPath)
	doc := map[string]interface{}{
		"code-index": map[string]interface{}{
			"name":           repoName,
			"collection":     sanitizeCollectionName(repoName),
			"default_branch": detectDefaultBranch(absPath),
			"include":        detectIncludes(absPath),
			"exclude":        []string{},
		},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Review and customize the config file\n")
	fmt.Printf("  2. Run: semindex index %s\n", absPath)
	return nil
}

func runServiceStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(globalConfigPath())
	if err != nil {
		fmt.Println("No global config found, using defaults")
		cfg = config.DefaultConfig()
	}

	qdrantStore, err := store.NewQdrantStore(cfg.Storage.QdrantURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant at %s: %w", cfg.Storage.QdrantURL, err)
	}
	defer qdrantStore.Close()

	ctx := context.Background()
	info, err := qdrantStore.CollectionInfo(ctx, serviceStatusCollection)
	if err != nil {
		fmt.Printf("No index found for collection %q. Run 'semindex index <repo>' to create one.\n", serviceStatusCollection)
		return nil
	}

	fmt.Println("Index Status:")
	fmt.Printf("  Collection: %s\n", serviceStatusCollection)
	fmt.Printf("  Points:     %d\n", info.PointsCount)
	fmt.Printf("  Vectors:    %d dimensions\n", info.VectorSize)
	fmt.Printf("  Status:     %s\n", info.Status)

	if cfg.Storage.Neo4jURL != "" {
		fmt.Printf("  Graph mirror: configured at %s (best-effort, not required for search)\n", cfg.Storage.Neo4jURL)
	} else {
		fmt.Println("  Graph mirror: not configured")
	}

	return nil
}

func sanitizeCollectionName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

func detectDefaultBranch(repoPath string) string {
	headPath := filepath.Join(repoPath, ".git", "HEAD")
	if data, err := os.ReadFile(headPath); err == nil {
		content := string(data)
		if strings.HasPrefix(content, "ref: refs/heads/") {
			return strings.TrimSpace(strings.TrimPrefix(content, "ref: refs/heads/"))
		}
	}
	return "main"
}

func detectIncludes(repoPath string) []string {
	var includes []string

	if hasFiles(repoPath, "*.py") {
		includes = append(includes, "**/*.py")
	}
	if hasFiles(repoPath, "*.go") {
		includes = append(includes, "**/*.go")
	}
	if hasFiles(repoPath, "*.js") || hasFiles(repoPath, "*.ts") {
		includes = append(includes, "**/*.js", "**/*.ts", "**/*.jsx", "**/*.tsx")
	}

	if len(includes) == 0 {
		includes = []string{"**/*.py", "**/*.go", "**/*.js", "**/*.ts", "**/*.md"}
	}
	return includes
}

func hasFiles(dir, pattern string) bool {
	if matches, _ := filepath.Glob(filepath.Join(dir, pattern)); len(matches) > 0 {
		return true
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*", pattern))
	return len(matches) > 0
}
