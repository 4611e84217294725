package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/windschord/context-mcp-sub001/internal/index"
)

func newIndexCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory for hybrid search",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			absPath, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if projectID == "" {
				projectID = absPath
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.Indexing.IndexProject(cmd.Context(), projectID, absPath, index.ProjectOptions{}, func(p index.Progress) {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %d%% %s\n", p.Phase, p.Percent, p.Message)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files, skipped %d, %d errors\n", result.Indexed, result.Skipped, len(result.Errors))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "stable project identifier (defaults to the absolute path)")
	return cmd
}
