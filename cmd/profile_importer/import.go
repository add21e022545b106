package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/profile-importer/internal/fetch"
	"github.com/jonathan/profile-importer/internal/importer"
	"github.com/jonathan/profile-importer/internal/observability"
	"github.com/jonathan/profile-importer/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCmd = &cobra.Command{
	Use:   "import <url> [url...]",
	Short: "Import one or more profile pages into Notion",
	Long: `Fetch each URL, locate the avatar, extract the profile and save it to the
configured Notion database. Duplicates (same name and phone or email) are skipped.

With --html a single page is read from a saved HTML file instead of being fetched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var (
	importHTMLFile    string
	importConcurrency int
	importJSON        bool
)

func init() {
	importCmd.Flags().StringVar(&importHTMLFile, "html", "", "Path to a saved HTML page (single URL only)")
	importCmd.Flags().IntVarP(&importConcurrency, "concurrency", "c", importer.DefaultConcurrency, "Maximum imports in flight")
	importCmd.Flags().BoolVar(&importJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if importHTMLFile != "" && len(args) > 1 {
		return errors.New("--html accepts a single URL")
	}
	for _, u := range args {
		if err := fetch.ValidateURL(u); err != nil {
			return err
		}
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireLLM(); err != nil {
		return err
	}
	if err := a.cfg.RequireNotion(); err != nil {
		return err
	}

	imp := a.importer
	if !importJSON {
		imp = imp.WithProgress(func(e importer.ProgressEvent) {
			a.logger.Info(e.Message, zap.String("step", e.Step), zap.String("url", e.URL))
		})
	}

	var items []importer.BatchItem
	if importHTMLFile != "" {
		item, err := importHTML(ctx, imp, args[0], importHTMLFile)
		if err != nil {
			return err
		}
		items = []importer.BatchItem{item}
	} else {
		items = imp.ImportBatch(ctx, args, importConcurrency)
	}

	out := cmd.OutOrStdout()
	if importJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(batchOutput(items)); err != nil {
			return err
		}
	} else {
		printer := observability.NewPrinter(out)
		for _, item := range items {
			printer.PrintImportResult(item.URL, item.Result)
		}
		if len(items) > 1 {
			printer.PrintBatchSummary(importer.Summary(items))
		}
	}

	if failed := importer.Summary(items)[string(types.ImportStatusFailed)]; failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(items))
	}
	return nil
}

func importHTML(ctx context.Context, imp *importer.Importer, pageURL, path string) (importer.BatchItem, error) {
	html, err := os.ReadFile(path)
	if err != nil {
		return importer.BatchItem{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	noise := fetch.PlatformNoiseSelectors(fetch.DetectPlatform(pageURL))
	snap, err := fetch.SnapshotFromHTML(string(html), pageURL, noise...)
	if err != nil {
		return importer.BatchItem{}, err
	}
	result, err := imp.Import(ctx, snap)
	return importer.BatchItem{URL: pageURL, Result: result, Err: err}, nil
}

type itemOutput struct {
	URL    string              `json:"url"`
	Result *types.ImportResult `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

func batchOutput(items []importer.BatchItem) []itemOutput {
	out := make([]itemOutput, len(items))
	for i, item := range items {
		out[i] = itemOutput{URL: item.URL, Result: item.Result}
		if item.Err != nil {
			out[i].Error = item.Err.Error()
		}
	}
	return out
}
