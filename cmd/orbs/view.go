package main

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/memory-orbs/internal/logging"
	"github.com/signalsfoundry/memory-orbs/internal/tui"
)

func newViewCmd(opts *rootOptions) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Explore the memories in the terminal",
		Long: "Drag to rotate the sphere, drag an orb to spin it, scroll to zoom.\n" +
			"Keys: m toggles sphere/gallery, g toggles gravity, u uploads demo images,\n" +
			"arrows browse the gallery, q quits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			// The screen owns stdout, so logs go to a file.
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			log := logging.New(logging.Config{
				Level:  os.Getenv(logging.EnvLevel),
				Format: os.Getenv(logging.EnvFormat),
				Output: f,
			})

			rt, err := newRuntime(cfg, log, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()
			if err := rt.watch(ctx, opts.configPath); err != nil {
				return err
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("open terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init terminal: %w", err)
			}
			defer screen.Fini()

			viewer := tui.New(screen, rt.scene, rt.clock,
				tui.WithLogger(log),
				tui.WithIngestor(rt.ingestor),
			)
			return viewer.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "orbs.log", "file that receives logs while the viewer owns the terminal")
	return cmd
}
