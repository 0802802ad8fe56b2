package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/memory-orbs/internal/config"
	"github.com/signalsfoundry/memory-orbs/internal/ingest"
	"github.com/signalsfoundry/memory-orbs/internal/logging"
	"github.com/signalsfoundry/memory-orbs/internal/observability"
	"github.com/signalsfoundry/memory-orbs/internal/scene"
	"github.com/signalsfoundry/memory-orbs/kb"
	"github.com/signalsfoundry/memory-orbs/timectrl"
)

// closeTimeout bounds how long shutdown waits for pending captions.
const closeTimeout = 5 * time.Second

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "orbs",
		Short:        "Photo memories laid out as orbs on a sphere or a spiral gallery",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (watched for changes)")

	cmd.AddCommand(
		newServeCmd(opts),
		newViewCmd(opts),
		newLayoutCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// runtime is the wired scene plus everything that feeds it.
type runtime struct {
	cfg           *config.Config
	log           logging.Logger
	scene         *scene.Scene
	ingestor      *ingest.Ingestor
	clock         *timectrl.FrameClock
	sceneMetrics  *observability.SceneCollector
	ingestMetrics *observability.IngestCollector
}

func newRuntime(cfg *config.Config, log logging.Logger, reg prometheus.Registerer) (*runtime, error) {
	sceneMetrics, err := observability.NewSceneCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("scene metrics: %w", err)
	}
	ingestMetrics, err := observability.NewIngestCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("ingest metrics: %w", err)
	}

	store := kb.NewMemoryStore()
	store.Subscribe(func(e kb.Event) {
		sceneMetrics.RecordMemoryEvent(e.Type.String())
	})
	sc := scene.New(store,
		scene.WithLogger(log),
		scene.WithMetricsRecorder(sceneMetrics),
		scene.WithTuning(cfg.Tuning()),
		scene.WithGravity(cfg.Gravity),
		scene.WithViewport(cfg.Viewport.Width, cfg.Viewport.Height),
	)
	sc.SetMode(cfg.Mode())

	captioner := ingest.NewResilientCaptioner(
		ingest.PhraseCaptioner{Delay: cfg.Caption.Delay},
		ingest.BreakerConfig{
			Name:        "captioner",
			Timeout:     cfg.Caption.Timeout,
			MaxFailures: cfg.Caption.MaxFailures,
			OpenTimeout: cfg.Caption.OpenTimeout,
		},
		log,
		ingestMetrics,
	)
	in := ingest.New(sc, captioner, ingest.WithLogger(log), ingest.WithMetrics(ingestMetrics))
	if cfg.Seed {
		if err := in.Seed(); err != nil {
			return nil, err
		}
	}

	clock := timectrl.NewFrameClock(time.Now(), cfg.FrameTick)
	clock.AddListener(sc.OnFrame)

	return &runtime{
		cfg:           cfg,
		log:           log,
		scene:         sc,
		ingestor:      in,
		clock:         clock,
		sceneMetrics:  sceneMetrics,
		ingestMetrics: ingestMetrics,
	}, nil
}

// watch applies config file changes to the live scene until ctx is done.
// It is a no-op without a config file.
func (rt *runtime) watch(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	w, err := config.NewWatcher(path, rt.cfg, config.WithWatcherLogger(rt.log))
	if err != nil {
		return err
	}
	w.OnChange(func(c *config.Config) {
		rt.scene.ApplyTuning(c.Tuning())
		if c.Gravity != rt.scene.Gravity() {
			rt.scene.ToggleGravityMode()
		}
		rt.log.Info(ctx, "config reloaded", logging.String("path", path))
	})
	go w.Run(ctx)
	return nil
}

func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := rt.ingestor.Close(ctx); err != nil {
		rt.log.Warn(ctx, "pending captions abandoned", logging.Err(err))
	}
}
