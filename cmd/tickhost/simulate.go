package main

import (
	"errors"

	"github.com/spf13/cobra"

	"tickcore/host/link"
	"tickcore/sim"
)

var (
	scenarioPath string
	showStats    bool

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run a scenario against the simulated firmware",
		Long: `Run a scenario file (.json, .yaml or .toml) against a firmware image on
a simulated machine and print every report the host receives.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			if scenarioPath == "" {
				return errors.New("--scenario is required")
			}
			sc, err := sim.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}
			sc.Debug = sc.Debug || verbose

			res, err := sim.Run(cmd.Context(), sc, log)
			if err != nil {
				return err
			}
			for _, rec := range res.Records {
				if _, ok := rec.Event.(link.Stats); ok && !showStats {
					continue
				}
				log.Info().
					Int("iteration", rec.Iteration).
					Uint32("clock", rec.Clock).
					Str("report", reportName(rec.Event)).
					Interface("fields", rec.Event).
					Msg("report")
			}
			log.Info().
				Stringer("state", res.State).
				Int("edges", len(res.Edges)).
				Uint32("watchdog_feeds", res.WatchdogFeeds).
				Msg("done")
			return nil
		},
	}
)

func init() {
	simulateCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario file")
	simulateCmd.Flags().BoolVar(&showStats, "stats", false, "include stats reports")
}

func reportName(ev link.Event) string {
	switch e := ev.(type) {
	case link.Starting:
		return "starting"
	case link.Shutdown:
		return "shutdown"
	case link.IsShutdown:
		return "is_shutdown"
	case link.Stats:
		return "stats"
	case link.Clock:
		return "clock"
	case link.Uptime:
		return "uptime"
	case link.Config:
		return "config"
	case link.CounterState:
		return "counter_state"
	case link.Other:
		return e.Message.Name
	}
	return "unknown"
}
