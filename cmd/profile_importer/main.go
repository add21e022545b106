// Package main provides the entry point for the profile importer CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	useBrowser bool
)

var rootCmd = &cobra.Command{
	Use:   "profile_importer",
	Short: "Import contact profiles from web pages into Notion",
	Long: `Profile importer captures a profile page, locates the profile photo, extracts
contact fields with an LLM and saves them as a page in a Notion database.

Configuration is read from ~/.config/profile-importer/config.yaml (or --config)
and overridden by environment variables such as NOTION_API_KEY and MOONSHOT_API_KEY.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default ~/.config/profile-importer/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&useBrowser, "use-browser", false, "Render pages in headless Chrome before extraction")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
