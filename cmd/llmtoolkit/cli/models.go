package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

const modelsShortDesc string = "List configured models by provider"

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: modelsShortDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return fmt.Errorf("creating client: %w", err)
			}
			defer c.Close()

			out := cmd.OutOrStdout()
			byProvider := c.Providers()
			providers := make([]string, 0, len(byProvider))
			for p := range byProvider {
				providers = append(providers, p)
			}
			sort.Strings(providers)
			for _, p := range providers {
				fmt.Fprintf(out, "%s:\n", p)
				for _, id := range byProvider[p] {
					marker := ""
					if id == c.FallbackModel() {
						marker = " (fallback)"
					}
					fmt.Fprintf(out, "  %s%s\n", id, marker)
				}
			}
			return nil
		},
	}
}
