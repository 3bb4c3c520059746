package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/scoreboard/internal/broker"
	"github.com/playperu/scoreboard/internal/config"
	"github.com/playperu/scoreboard/internal/display"
	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/server"
)

func newServeCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the display poller.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(stdout)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			b, err := openBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			ledger := scoreboard.NewLedger(b.store, cfg.ScoreMode, logger.With("component", "ledger"))

			// --- Display ---
			d := cfg.Display
			commands := broker.New[[]byte]()
			sink := display.BrokerSink{Broker: commands, Topic: display.CommandTopic, Logger: logger}
			board := display.NewVirtualBoard(sink, d.RowHeight, d.RowGap, d.Width)
			overlay := display.NewVirtualOverlay(sink)
			seq := display.NewSequencer(display.SequencerConfig{
				Board:        board,
				Overlay:      overlay,
				Effects:      display.NewConfetti(sink, d.Confetti, nil),
				States:       b.store,
				Timings:      timings(d),
				Labels:       display.DefaultLabels(),
				InterludeGIF: d.InterludeGIF,
				Logger:       logger.With("component", "sequencer"),
			})
			poller := display.NewPoller(display.PollerConfig{
				Store:           b.store,
				Notifier:        b.store,
				Sequencer:       seq,
				TriggerInterval: d.TriggerInterval,
				DataInterval:    d.DataInterval,
				Logger:          logger.With("component", "poller"),
			})

			// --- HTTP Server ---
			srv := server.New(cfg.HTTPAddr, logger, server.Deps{
				Ledger:    ledger,
				Events:    b.store,
				Admins:    b.admins,
				Display:   server.Display{Board: board, Overlay: overlay, Broker: commands},
				Checks:    b.checks,
				PublicURL: cfg.PublicURL,
				SPADir:    cfg.SPADir,
			})

			// --- Run ---
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				logger.Info("starting http server", "addr", cfg.HTTPAddr, "store", cfg.StoreBackend, "score_mode", cfg.ScoreMode)
				return srv.Run(gctx)
			})

			g.Go(func() error {
				return poller.Run(gctx)
			})

			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down http server")
				return srv.Shutdown(context.Background())
			})

			return g.Wait()
		},
	}
}

func timings(d config.Display) display.Timings {
	return display.Timings{
		Slide:         d.Slide,
		Easing:        d.Easing,
		SettleDelay:   d.SettleDelay,
		Highlight:     d.Highlight,
		Popup:         d.Popup,
		PopupFade:     d.PopupFade,
		ConfettiDelay: d.ConfettiDelay,
		Interlude:     d.Interlude,
		Epsilon:       d.Epsilon,
	}
}
