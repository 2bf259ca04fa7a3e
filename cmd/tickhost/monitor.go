package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tickcore/host/link"
	"tickcore/host/serial"
)

// statsEvery thins the stats log; the firmware sends one every 5s
const statsEvery = 6

var (
	device        string
	baud          int
	clearShutdown bool

	monitorCmd = &cobra.Command{
		Use:   "monitor",
		Short: "Attach to a board and log its reports",
		Long: `Open the board's serial port, download its data dictionary and log
shutdown, stats and other reports until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := serial.DefaultConfig(device)
			cfg.Baud = baud
			port, err := serial.Open(cfg)
			if err != nil {
				return err
			}
			if err := port.Flush(); err != nil {
				log.Warn().Err(err).Msg("flush input")
			}
			log.Info().Str("device", device).Int("baud", baud).Msg("connected")

			l := link.New(port, log)
			errc := make(chan error, 1)
			go func() { errc <- l.Run(ctx) }()

			idCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = l.Identify(idCtx)
			cancel()
			if err != nil {
				stop()
				<-errc
				return err
			}
			if err := l.Send(ctx, "get_config"); err != nil {
				return err
			}
			return monitor(ctx, l, errc)
		},
	}
)

func init() {
	monitorCmd.Flags().StringVarP(&device, "device", "d", "/dev/ttyACM0", "serial device path")
	monitorCmd.Flags().IntVarP(&baud, "baud", "b", serial.DefaultBaud, "baud rate (ignored for USB CDC)")
	monitorCmd.Flags().BoolVar(&clearShutdown, "clear-shutdown", false, "send clear_shutdown whenever the board reports a shutdown")
}

func monitor(ctx context.Context, l *link.Link, errc <-chan error) error {
	log := newLogger()
	stats := 0
	for ev := range l.Events() {
		switch e := ev.(type) {
		case link.Shutdown, link.IsShutdown:
			if clearShutdown {
				log.Info().Msg("sending clear_shutdown")
				if err := l.Send(ctx, "clear_shutdown"); err != nil {
					return err
				}
			}
		case link.Stats:
			stats++
			if stats%statsEvery == 0 {
				log.Info().Uint32("count", e.Count).Uint32("sum", e.Sum).Uint32("sumsq", e.Sumsq).Msg("stats")
			}
		case link.Config:
			log.Info().
				Bool("configured", e.IsConfig).
				Bool("shutdown", e.IsShutdown).
				Uint32("move_count", e.MoveCount).
				Msg("config")
		case link.CounterState:
			log.Info().Uint8("oid", e.OID).Uint32("count", e.Count).Uint32("clock", e.CountClock).Msg("counter")
		}
	}
	err := <-errc
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
