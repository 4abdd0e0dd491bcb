package soilctl

import (
	"github.com/spf13/cobra"
)

func newCropsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "crops",
		Short: "List the crop knowledge base",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kb, err := g.knowledge()
			if err != nil {
				return err
			}
			crops := kb.Crops()
			return g.print(cmd.OutOrStdout(), crops, func() string { return RenderCrops(crops) })
		},
	}
}
