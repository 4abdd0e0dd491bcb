// Package soilctl is the command line front end of the soil advisor: it
// evaluates a reading locally against the knowledge base, or remotely through
// the advisor gRPC service, and prints the result as a report or as JSON.
package soilctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	core "github.com/LeonardoBeccarini/soil_advisor/internal/advisor"
	"github.com/LeonardoBeccarini/soil_advisor/internal/knowledge"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/messages"
	"github.com/LeonardoBeccarini/soil_advisor/internal/services/advisor"
)

type globals struct {
	jsonOut  bool
	grpcAddr string
	timeout  time.Duration
	strict   bool

	thresholds string
	messages   string
	crops      string
	lang       string

	max int
	top int
}

func (g *globals) knowledge() (*knowledge.Base, error) {
	return knowledge.Load(knowledge.Paths{
		Thresholds: g.thresholds,
		Messages:   g.messages,
		Crops:      g.crops,
		Lang:       g.lang,
	})
}

// evaluate runs the reading through the local engine, or through the remote
// advisor when --grpc is set.
func (g *globals) evaluate(ctx context.Context, sr messages.SoilReading) (advisor.Evaluation, error) {
	if g.grpcAddr != "" {
		conn, err := grpc.NewClient(g.grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return advisor.Evaluation{}, fmt.Errorf("dial %s: %w", g.grpcAddr, err)
		}
		defer conn.Close()

		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		ev, err := advisor.NewClient(conn).Evaluate(cctx, &sr, g.max, g.top)
		if err != nil {
			return advisor.Evaluation{}, fmt.Errorf("remote evaluate: %w", err)
		}
		return ev, nil
	}

	kb, err := g.knowledge()
	if err != nil {
		return advisor.Evaluation{}, err
	}
	svc := advisor.New(kb, advisor.Options{Strict: g.strict})
	return svc.Evaluate(sr.ToReading(), g.max, g.top), nil
}

func (g *globals) print(out io.Writer, v any, report func() string) error {
	if g.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(out, report())
	return err
}

// NewRootCmd builds the soilctl command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "soilctl",
		Short: "soilctl - soil reading alerts and crop suitability",
		Long: `soilctl checks a soil reading (pH, moisture, temperature, N, P, K)
against the alert thresholds and ranks the crops of the knowledge base
by how well the soil suits them.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&g.jsonOut, "json", false, "print JSON instead of a report")
	pf.StringVar(&g.grpcAddr, "grpc", "", "evaluate on a remote advisor (host:port) instead of locally")
	pf.DurationVar(&g.timeout, "timeout", 5*time.Second, "timeout for remote calls and board fetches")
	pf.BoolVar(&g.strict, "strict", false, "report metrics missing from the reading as issues")
	pf.StringVar(&g.thresholds, "thresholds", "", "thresholds JSON file (default: embedded)")
	pf.StringVar(&g.messages, "messages", "", "alert messages JSON file (default: embedded)")
	pf.StringVar(&g.crops, "crops", "", "crop knowledge base JSON file (default: embedded)")
	pf.StringVar(&g.lang, "lang", "en", "embedded message language (en, bn)")
	pf.IntVar(&g.max, "max", core.MaxIssues, "issues to show (never more than 3)")
	pf.IntVar(&g.top, "top", core.DefaultTopN, "crops to recommend")

	root.AddCommand(newEvaluateCmd(g), newFetchCmd(g), newCropsCmd(g))
	return root
}
