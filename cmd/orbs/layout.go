package main

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/memory-orbs/internal/logging"
	"github.com/signalsfoundry/memory-orbs/internal/server"
	"github.com/signalsfoundry/memory-orbs/model"
)

type layoutOptions struct {
	mode   string
	focus  int
	zoom   float64
	dragX  float64
	dragY  float64
	pretty bool
}

func newLayoutCmd(opts *rootOptions) *cobra.Command {
	lo := &layoutOptions{}
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print one frame of the scene as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if lo.mode != "" {
				if _, ok := model.ParseViewMode(lo.mode); !ok {
					return fmt.Errorf("unknown mode %q (want sphere or gallery)", lo.mode)
				}
				cfg.StartMode = lo.mode
			}

			rt, err := newRuntime(cfg, logging.Noop(), prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer rt.close()

			sc := rt.scene
			if lo.dragX != 0 || lo.dragY != 0 {
				sc.ApplyDrag(lo.dragX, lo.dragY)
			}
			if lo.zoom > 0 {
				sc.SetZoomLevel(lo.zoom)
			}
			if lo.focus > 0 {
				sc.SetFocusedIndex(lo.focus)
			}

			resp := server.NewFrameResponse(sc.View())
			enc := json.NewEncoder(cmd.OutOrStdout())
			if lo.pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVar(&lo.mode, "mode", "", "view mode: sphere or gallery (default from config)")
	cmd.Flags().IntVar(&lo.focus, "focus", 0, "focused gallery index")
	cmd.Flags().Float64Var(&lo.zoom, "zoom", 0, "zoom level (default from scene)")
	cmd.Flags().Float64Var(&lo.dragX, "drag-x", 0, "horizontal drag in pixels applied before layout")
	cmd.Flags().Float64Var(&lo.dragY, "drag-y", 0, "vertical drag in pixels applied before layout")
	cmd.Flags().BoolVar(&lo.pretty, "pretty", false, "indent the JSON output")
	return cmd
}
