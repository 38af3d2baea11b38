// cmd/semindex/hooks.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage the Claude Code PostToolUse hook that keeps the index current",
}

var hooksInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Register the semindex PostToolUse hook in Claude Code's settings",
	RunE:  runHooksInstall,
}

var hooksUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the semindex PostToolUse hook from Claude Code's settings",
	RunE:  runHooksUninstall,
}

var hooksStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the semindex hook is installed",
	RunE:  runHooksStatus,
}

func init() {
	hooksCmd.AddCommand(hooksInstallCmd, hooksUninstallCmd, hooksStatusCmd)
	rootCmd.AddCommand(hooksCmd)
}

const hookMatcher = "Edit|Write"

// hookCommand is the shell line Claude Code runs after a matching tool call;
// it reads the edited file path from the hook's stdin JSON payload and calls
// 'semindex file' on it, mirroring the teacher's invalidate-file command.
const hookCommand = `semindex file "$(jq -r '.tool_input.file_path // empty')"`

func settingsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".claude", "settings.json"), nil
}

func loadSettings(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	var settings map[string]interface{}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return settings, nil
}

func saveSettings(path string, settings map[string]interface{}) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func runHooksInstall(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	settings, err := loadSettings(path)
	if err != nil {
		return err
	}

	hooks, _ := settings["hooks"].(map[string]interface{})
	if hooks == nil {
		hooks = map[string]interface{}{}
	}

	entry := map[string]interface{}{
		"matcher": hookMatcher,
		"hooks": []interface{}{
			map[string]interface{}{"type": "command", "command": hookCommand},
		},
	}

	existing, _ := hooks["PostToolUse"].([]interface{})
	for _, e := range existing {
		if m, ok := e.(map[string]interface{}); ok {
			if inner, ok := m["hooks"].([]interface{}); ok {
				for _, h := range inner {
					if hm, ok := h.(map[string]interface{}); ok && hm["command"] == hookCommand {
						fmt.Println("semindex hook already installed")
						return nil
					}
				}
			}
		}
	}

	hooks["PostToolUse"] = append(existing, entry)
	settings["hooks"] = hooks

	if err := saveSettings(path, settings); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Printf("Installed semindex PostToolUse hook in %s\n", path)
	return nil
}

func runHooksUninstall(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	settings, err := loadSettings(path)
	if err != nil {
		return err
	}

	hooks, _ := settings["hooks"].(map[string]interface{})
	if hooks == nil {
		fmt.Println("no hooks configured")
		return nil
	}

	existing, _ := hooks["PostToolUse"].([]interface{})
	var kept []interface{}
	for _, e := range existing {
		m, ok := e.(map[string]interface{})
		if !ok {
			kept = append(kept, e)
			continue
		}
		inner, _ := m["hooks"].([]interface{})
		var keptInner []interface{}
		for _, h := range inner {
			if hm, ok := h.(map[string]interface{}); ok && hm["command"] == hookCommand {
				continue
			}
			keptInner = append(keptInner, h)
		}
		if len(keptInner) > 0 {
			m["hooks"] = keptInner
			kept = append(kept, m)
		}
	}
	hooks["PostToolUse"] = kept
	settings["hooks"] = hooks

	if err := saveSettings(path, settings); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Println("Removed semindex PostToolUse hook")
	return nil
}

func runHooksStatus(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	settings, err := loadSettings(path)
	if err != nil {
		return err
	}

	hooks, _ := settings["hooks"].(map[string]interface{})
	existing, _ := hooks["PostToolUse"].([]interface{})
	for _, e := range existing {
		if m, ok := e.(map[string]interface{}); ok {
			if inner, ok := m["hooks"].([]interface{}); ok {
				for _, h := range inner {
					if hm, ok := h.(map[string]interface{}); ok && hm["command"] == hookCommand {
						fmt.Println("installed")
						return nil
					}
				}
			}
		}
	}

	fmt.Println("not installed")
	return nil
}
