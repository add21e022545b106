package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/profile-importer/internal/db"
	"github.com/jonathan/profile-importer/internal/observability"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent imports",
	RunE:  runHistory,
}

var (
	historyLimit int
	historyURL   string
	historyJSON  bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", db.DefaultListLimit, "Number of records to show")
	historyCmd.Flags().StringVar(&historyURL, "url", "", "Show the latest import of this URL")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print records as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.history == nil {
		return errors.New("import history is not configured (set database.url or database.sqlite_path)")
	}

	var records []db.ImportRecord
	if historyURL != "" {
		rec, err := a.history.FindByURL(ctx, historyURL)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no import recorded for %s", historyURL)
		}
		records = []db.ImportRecord{*rec}
	} else {
		records, err = a.history.ListImports(ctx, historyLimit)
		if err != nil {
			return err
		}
	}

	if historyJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintHistory(records)
	return nil
}
