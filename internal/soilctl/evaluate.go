package soilctl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/messages"
)

// flag name per metric; "temp" also answers to --temperature
var metricFlags = map[entities.Metric]string{
	entities.MetricPH:         "ph",
	entities.MetricMoisture:   "moisture",
	entities.MetricTemp:       "temp",
	entities.MetricNitrogen:   "nitrogen",
	entities.MetricPhosphorus: "phosphorus",
	entities.MetricPotassium:  "potassium",
}

func newEvaluateCmd(g *globals) *cobra.Command {
	var file string
	values := map[entities.Metric]*float64{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a soil reading",
		Long: `Evaluate a reading given as flags or as a JSON file (the board's /sensor
document, "-" reads stdin). Metrics not given are treated as not reported.`,
		Example: `  soilctl evaluate --ph 8.2 --moisture 60 --temp 28 --nitrogen 80 --phosphorus 70 --potassium 80
  soilctl evaluate --file reading.json --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var sr messages.SoilReading
			if file != "" {
				var err error
				if sr, err = readReadingFile(cmd.InOrStdin(), file); err != nil {
					return err
				}
			} else {
				r := entities.Reading{}
				for m, name := range metricFlags {
					if cmd.Flags().Changed(name) {
						r.Set(m, *values[m])
					}
				}
				if r.AllInvalid() {
					return fmt.Errorf("no metric given: use --file or at least one of --ph --moisture --temp --nitrogen --phosphorus --potassium")
				}
				sr = messages.FromReading(r)
			}

			ev, err := g.evaluate(cmd.Context(), sr)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), ev, func() string { return RenderEvaluation(ev) })
		},
	}

	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "reading JSON file, - for stdin")
	for _, m := range entities.Metrics {
		values[m] = new(float64)
		f.Float64Var(values[m], metricFlags[m], 0, fmt.Sprintf("%s value", m))
	}
	f.SetNormalizeFunc(normalizeMetricFlag)
	return cmd
}

func readReadingFile(stdin io.Reader, path string) (messages.SoilReading, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return messages.SoilReading{}, fmt.Errorf("read %s: %w", path, err)
	}
	var sr messages.SoilReading
	if err := json.Unmarshal(b, &sr); err != nil {
		return messages.SoilReading{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return sr, nil
}

// normalizeMetricFlag lets metric aliases stand for the metric flags
// (--temperature, --pH, --N ...).
func normalizeMetricFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if m, ok := entities.ParseMetric(name); ok {
		return pflag.NormalizedName(metricFlags[m])
	}
	return pflag.NormalizedName(name)
}
