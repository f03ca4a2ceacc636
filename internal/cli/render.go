package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/perastrom/koto/internal/config"
	"github.com/perastrom/koto/pkg/dispatcher"
	"github.com/perastrom/koto/pkg/engine"
	"github.com/perastrom/koto/pkg/frontend/offline"
	"github.com/perastrom/koto/pkg/plugins"
	"github.com/perastrom/koto/pkg/rtlog"
)

// RenderOptions holds the render command flags.
type RenderOptions struct {
	*RootOptions
	Input  string
	Output string
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an audio file through the configured processing graph",
		Long: `Render a WAV file through the engine faster than real time.

The processing graph is built from the chains section of the configuration
file. Input and output paths come from the configuration and can be
overridden with flags.

Example:
  koto render --config koto.yaml --input dry.wav --output wet.wav`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input WAV file (overrides config)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output WAV file (overrides config)")

	return cmd
}

func runRender(opts *RenderOptions) error {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return err
		}
	}
	if opts.Input != "" {
		cfg.Input = opts.Input
	}
	if opts.Output != "" {
		cfg.Output = opts.Output
	}
	if cfg.Input == "" || cfg.Output == "" {
		return errors.New("input and output files are required")
	}

	log := opts.Logger()

	e := engine.New(log, cfg.BlockSize, cfg.RtQueueCapacity)
	e.SetSampleRate(cfg.SampleRate)
	e.SetFactory(plugins.NewFactory())

	for _, ch := range cfg.Chains {
		if err := e.CreateChain(ch.Name, ch.Channels); err != nil {
			return fmt.Errorf("build graph: %w", err)
		}
		for _, p := range ch.Plugins {
			if err := e.AddPlugin(ch.Name, p.Kind, p.Name); err != nil {
				return fmt.Errorf("build graph: %w", err)
			}
		}
	}

	worker := dispatcher.NewWorker(log, e,
		time.Duration(cfg.WorkerTickMs)*time.Millisecond,
		time.Duration(cfg.TimingReportIntervalS)*time.Second)
	disp := dispatcher.New(log, e, worker,
		time.Duration(cfg.DispatcherTickMs)*time.Millisecond)
	e.SetEventPoster(disp.PostEvent)

	drainer := rtlog.NewDrainer(e.LogRing(), log, 100*time.Millisecond)
	drainer.Run()
	defer drainer.Stop()

	// Offline rendering owns the clock, so the dispatcher is ticked by the
	// frontend once per block instead of running on its own thread.
	worker.Run()
	defer worker.Stop()
	defer disp.Stop()

	f := offline.New(log, e, disp)
	if err := f.Process(cfg.Input, cfg.Output); err != nil {
		return err
	}
	e.EmitTimings()
	return nil
}
