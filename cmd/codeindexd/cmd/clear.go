package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/windschord/context-mcp-sub001/internal/mcpbinding"
)

func newClearCmd() *cobra.Command {
	var projectID string
	var confirm bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear a project's (or every project's) indexed state",
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

			out, err := a.MCP.CallClearIndex(cmd.Context(), mcpbinding.ClearIndexInput{
				ProjectID: projectID,
				Confirm:   confirm,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "clear only this project (defaults to every tracked project)")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "actually clear the index; this command is a no-op without it")
	return cmd
}
