package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the property types of the Notion database",
	RunE:  runSchema,
}

var schemaJSON bool

func init() {
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "Print the raw schema as JSON")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireNotion(); err != nil {
		return err
	}

	database, err := a.saver.Schema(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if schemaJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(database)
	}

	names := make([]string, 0, len(database.Properties))
	for name := range database.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROPERTY\tTYPE")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\n", name, database.Properties[name].Type)
	}
	return tw.Flush()
}
