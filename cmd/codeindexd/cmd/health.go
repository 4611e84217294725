package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the embedder and vector-store dependencies",
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

			out, err := a.MCP.CallHealthCheck(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s (uptime %ds, version %s)\n", out.Status, out.UptimeSeconds, out.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  vectorStore: %s (%dms)\n", out.Dependencies.VectorStore.Status, out.Dependencies.VectorStore.LatencyMs)
			if out.Dependencies.VectorStore.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    error: %s\n", out.Dependencies.VectorStore.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  embeddingEngine: %s (%dms)\n", out.Dependencies.EmbeddingEngine.Status, out.Dependencies.EmbeddingEngine.LatencyMs)
			if out.Dependencies.EmbeddingEngine.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    error: %s\n", out.Dependencies.EmbeddingEngine.Error)
			}
			if out.Status != "healthy" {
				return fmt.Errorf("unhealthy")
			}
			return nil
		},
	}
}
