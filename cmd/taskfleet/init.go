package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize taskfleet in the current directory",
	Long: `Initialize taskfleet in the current directory.

Creates the .taskfleet directory with its signals subdirectory and writes a
.taskfleet.yaml configuration template if one does not exist.`,
	RunE: runInit,
}

const configTemplate = `# taskfleet project configuration
# Values here override the user config; environment variables override both.

models:
  primary: claude-sonnet-4-20250514
  fallback: claude-3-5-haiku-20241022
  fallback_after_attempts: 2

retry:
  max_attempts: 3
  delay: 2s

quota:
  daily_limit: 1000
  warn_fraction: 0.8

# warehouse:
#   db_path: ./warehouse.db
#   max_rows: 100
`

func runInit(cmd *cobra.Command, args []string) error {
	dirs := []string{
		".taskfleet",
		filepath.Join(".taskfleet", "signals"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	printStatus("✓", "Created .taskfleet directory structure", color.FgGreen)

	if _, err := os.Stat(".taskfleet.yaml"); os.IsNotExist(err) {
		if err := os.WriteFile(".taskfleet.yaml", []byte(configTemplate), 0644); err != nil {
			return fmt.Errorf("write config template: %w", err)
		}
		printStatus("✓", "Created .taskfleet.yaml template", color.FgGreen)
	} else {
		printStatus("✓", ".taskfleet.yaml already exists", color.FgGreen)
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	fmt.Printf("\n%s taskfleet initialization complete!\n", color.GreenString("✓"))
	return nil
}

// printStatus prints a status line with color.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	c.Printf("%s ", symbol)
	fmt.Println(message)
}
