package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/klanavo/klanavo/internal/model"
	"github.com/klanavo/klanavo/internal/run"
)

var (
	runStart    string
	runEnd      string
	runQuery    string
	runRadius   int
	runStep     int
	runMinPrice int
	runMaxPrice int
	runCategory int
	runOutput   string
)

// runResult is what the run command prints.
type runResult struct {
	Outcome  run.Outcome             `json:"outcome" yaml:"outcome"`
	Listings []model.EnrichedListing `json:"listings" yaml:"listings"`
	Clusters []model.Cluster         `json:"clusters" yaml:"clusters"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search listings along a route and enrich them",
	Example: `  klanavo run --start Berlin --end Hamburg --query "Rennrad"
  klanavo run --start München --end Stuttgart --query Sofa --radius 5 --max-price 200 --output yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		p := runParams(cmd)
		env := initRunEnv(cfg, progressPrinter(cmd.ErrOrStderr()))

		out, err := env.Orchestrator.Run(ctx, p)
		if err != nil {
			return err
		}

		snap := env.Orchestrator.Snapshot()
		res := runResult{Outcome: out, Listings: snap.Listings, Clusters: snap.Clusters}
		if err := writeOutput(cmd.OutOrStdout(), runOutput, res); err != nil {
			return err
		}

		fmt.Fprintln(cmd.ErrOrStderr(), out.Message) //nolint:errcheck
		if out.State == model.RunFailed {
			return eris.Errorf("run failed: %s", out.Message)
		}
		return nil
	},
}

// runParams builds run inputs from flags. Unset radius and step fall back to
// config; price and category filters are only sent when given.
func runParams(cmd *cobra.Command) run.Params {
	p := run.Params{
		Start:    runStart,
		End:      runEnd,
		Query:    runQuery,
		RadiusKm: runRadius,
		StepKm:   runStep,
	}
	if p.RadiusKm == 0 && cfg != nil {
		p.RadiusKm = cfg.Run.RadiusKm
	}
	if p.StepKm == 0 && cfg != nil {
		p.StepKm = cfg.Run.StepKm
	}

	flags := cmd.Flags()
	if flags.Changed("min-price") {
		v := runMinPrice
		p.MinPrice = &v
	}
	if flags.Changed("max-price") {
		v := runMaxPrice
		p.MaxPrice = &v
	}
	if flags.Changed("category") {
		v := runCategory
		p.Category = &v
	}
	return p
}

// progressPrinter reports listing progress as it is committed.
func progressPrinter(w io.Writer) func(run.Event) {
	return func(ev run.Event) {
		switch {
		case ev.Listing != nil:
			fmt.Fprintf(w, "[%3d%%] %s (%s)\n", ev.Progress, ev.Listing.Title, ev.Listing.Label) //nolint:errcheck
		case ev.State == model.RunRunning && ev.Message != "":
			fmt.Fprintln(w, ev.Message) //nolint:errcheck
		}
	}
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runStart, "start", "", "start address")
	f.StringVar(&runEnd, "end", "", "destination address")
	f.StringVar(&runQuery, "query", "", "search term")
	f.IntVar(&runRadius, "radius", 0, "search radius around the route in km (default from config)")
	f.IntVar(&runStep, "step", 0, "distance between route samples in km (default from config)")
	f.IntVar(&runMinPrice, "min-price", 0, "minimum price in euro")
	f.IntVar(&runMaxPrice, "max-price", 0, "maximum price in euro")
	f.IntVar(&runCategory, "category", 0, "listing category id")
	f.StringVarP(&runOutput, "output", "o", "json", "output format: json or yaml")
	rootCmd.AddCommand(runCmd)
}
