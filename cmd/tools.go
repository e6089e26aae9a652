package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"qualitygate/internal/analysis/adapter"
	"qualitygate/internal/analysis/notifier"
	"qualitygate/internal/analysis/session"
	"qualitygate/internal/logging"
)

var toolsFormat string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered analyzer tools",
	RunE:  runToolsCommand,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().StringVarP(&toolsFormat, "format", "f", "table", "output format (table, json)")
}

func runToolsCommand(cmd *cobra.Command, args []string) error {
	log := logging.NewTestLogger()
	controller := session.New(notifier.New(log), adapter.NewRegistry(), log, nil)
	tools := controller.ListTools()

	if toolsFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tools)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSUBTITLE")
	for _, t := range tools {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Title, t.Subtitle)
	}
	return tw.Flush()
}
