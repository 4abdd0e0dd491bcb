package soilctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/soil_advisor/pkg/esp32"
)

func newFetchCmd(g *globals) *cobra.Command {
	cfg := esp32.Config{}

	cmd := &cobra.Command{
		Use:     "fetch",
		Short:   "Fetch the current reading from the sensor board and evaluate it",
		Example: `  soilctl fetch --url http://192.168.4.1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.BaseURL == "" {
				return fmt.Errorf("--url is required")
			}
			cfg.Timeout = g.timeout

			ctx, cancel := context.WithTimeout(cmd.Context(), 3*g.timeout)
			defer cancel()
			sr, err := esp32.New(cfg).Fetch(ctx)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", cfg.BaseURL, err)
			}

			ev, err := g.evaluate(cmd.Context(), sr)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), ev, func() string { return RenderEvaluation(ev) })
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "", "board address, e.g. http://192.168.4.1")
	f.StringVar(&cfg.Path, "path", esp32.DefaultPath, "reading endpoint on the board")
	f.IntVar(&cfg.Retries, "retries", 1, "retries on transient failures")
	return cmd
}
