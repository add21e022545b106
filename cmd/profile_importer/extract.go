package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/profile-importer/internal/fetch"
	"github.com/jonathan/profile-importer/internal/observability"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a profile without saving it",
	Long: `Run LLM extraction over page text and print the profile. Text is read from
--text-file ("-" for stdin) or captured from --url. Nothing is written to Notion.`,
	RunE: runExtract,
}

var (
	extractTextFile string
	extractURL      string
	extractJSON     bool
)

func init() {
	extractCmd.Flags().StringVarP(&extractTextFile, "text-file", "f", "", "Path to a text file with the page content, or - for stdin")
	extractCmd.Flags().StringVarP(&extractURL, "url", "u", "", "Page URL to fetch (also stamped on the profile)")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Print the profile as JSON")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if extractTextFile == "" && extractURL == "" {
		return errors.New("one of --text-file or --url is required")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireLLM(); err != nil {
		return err
	}

	var content string
	if extractTextFile != "" {
		content, err = readText(cmd.InOrStdin(), extractTextFile)
		if err != nil {
			return err
		}
	} else {
		snap, err := fetch.Take(ctx, extractURL, fetchOptions(a.cfg.Fetch))
		if err != nil {
			return err
		}
		content = snap.Text
	}

	profile, err := a.importer.Extract(ctx, content, extractURL)
	if err != nil {
		return err
	}

	if extractJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintProfile(profile)
	return nil
}

func readText(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	return string(data), nil
}
