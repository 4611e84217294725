package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/windschord/context-mcp-sub001/internal/mcpbinding"
)

func newStatusCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report indexing statistics for one project or every tracked project",
		Args:  cobra.NoArgs,
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

			out, err := a.MCP.CallGetIndexStatus(cmd.Context(), mcpbinding.GetIndexStatusInput{ProjectID: projectID})
			if err != nil {
				return err
			}
			if len(out.Projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no projects indexed")
				return nil
			}
			for _, p := range out.Projects {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", p.ProjectID, p.RootPath)
				fmt.Fprintf(cmd.OutOrStdout(), "  status: %s\n", p.Status)
				fmt.Fprintf(cmd.OutOrStdout(), "  files: %d/%d indexed, symbols: %d, vectors: %d, documents: %d\n",
					p.Stats.IndexedFiles, p.Stats.TotalFiles, p.Stats.TotalSymbols, p.Stats.TotalVectors, p.Stats.TotalDocuments)
				if p.Stats.LastIndexedAt != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "  last indexed: %s\n", p.Stats.LastIndexedAt)
				}
				for _, e := range p.Errors {
					fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", e)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "restrict the report to a single project")
	return cmd
}
