package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/windschord/context-mcp-sub001/internal/mcpbinding"
)

func newSearchCmd() *cobra.Command {
	var projectID string
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run a hybrid search against an indexed project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			_, out, err := a.MCP.CallSearchCode(cmd.Context(), mcpbinding.SearchCodeInput{
				Query:     args[0],
				ProjectID: projectID,
				TopK:      topK,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d results in %dms\n\n", out.TotalResults, out.SearchTimeMs)
			for _, r := range out.Results {
				fmt.Fprintf(cmd.OutOrStdout(), "%.3f  %s:%d-%d  %s\n", r.Score, r.FilePath, r.LineStart, r.LineEnd, r.SymbolName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "project to search (required if more than one is indexed)")
	cmd.Flags().IntVar(&topK, "top-k", 10, "maximum number of results")
	return cmd
}
