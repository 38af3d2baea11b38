// cmd/semindex/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "semindex",
	Short: "Semantic code indexing",
	Long:  `Index codebases into a vector-searchable knowledge graph of entities and relations.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("semindex v0.1.0")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func globalConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".semindex-config.yaml"
	}
	return filepath.Join(homeDir, ".config", "semindex", "config.yaml")
}
