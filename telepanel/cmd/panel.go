package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/telepanel/anim"
	"github.com/sarchlab/telepanel/layout"
	"github.com/sarchlab/telepanel/monitoring"
	"github.com/sarchlab/telepanel/registry"
	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/render"
	"github.com/sarchlab/telepanel/timing"
	"github.com/sarchlab/telepanel/widget"
)

type panelOptions struct {
	server      string
	layout      string
	monitor     bool
	monitorPort int
	open        bool
	duration    time.Duration
	traceEvents bool
}

var panelFlags panelOptions

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Run a headless panel against a telemetry service.",
	Long: `Run the widgets of a panel layout against a telemetry service. ` +
		`The panel is drawn on an in-memory surface that the monitor can ` +
		`show. Without --layout, every widget kind is placed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(
			cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runPanel(ctx, panelFlags)
	},
}

func addPanelFlags(cmd *cobra.Command, opts *panelOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.layout, "layout", "",
		"The YAML file describing the panel.")
	f.BoolVar(&opts.monitor, "monitor", false,
		"Serve the monitor to inspect the panel.")
	f.IntVar(&opts.monitorPort, "monitor-port", 0,
		"The port of the monitor. A random port is used by default.")
	f.BoolVar(&opts.open, "open", false,
		"Open the monitor in a browser. Implies --monitor.")
	f.DurationVar(&opts.duration, "duration", 0,
		"Stop after this long. The panel runs until interrupted by default.")
	f.BoolVar(&opts.traceEvents, "trace-events", false,
		"Log every event the panel handles.")
}

func init() {
	panelCmd.Flags().StringVar(&panelFlags.server, "server",
		"http://localhost:3000", "The URL of the telemetry service.")
	addPanelFlags(panelCmd, &panelFlags)

	rootCmd.AddCommand(panelCmd)
}

func loadLayout(path string) (layout.Panel, error) {
	if path == "" {
		return layout.DefaultPanel(), nil
	}

	return layout.Load(path)
}

func runPanel(ctx context.Context, opts panelOptions) error {
	p, err := loadLayout(opts.layout)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "panel ", log.LstdFlags)

	// Request completions are scheduled from the request goroutines.
	timing.UseParallelIDGenerator()

	engine := timing.NewRealTimeEngine()
	if opts.traceEvents {
		engine.AcceptHook(timing.NewEventLogger(
			log.New(os.Stderr, "event ", 0)))
	}

	canvas := render.NewCanvas(
		anim.NewAnimator("Animator", engine, timing.FrameRate))

	b := widget.MakeBuilder().
		WithEngine(engine).
		WithSurface(canvas).
		WithLogger(logger).
		WithClient(remote.NewClient(opts.server)).
		WithTrafficCoordinator(
			widget.NewTrafficCoordinator(engine, registry.New(), logger))
	if verbose {
		b = b.WithDebugLogger(log.New(os.Stderr, "debug ", log.LstdFlags))
	}

	widgets, err := p.Build(b)
	if err != nil {
		return err
	}

	if opts.monitor || opts.open {
		startMonitor(opts, engine, canvas, widgets)
	}

	fmt.Fprintf(os.Stderr, "Panel with %d widgets polling %s\n",
		len(widgets), opts.server)

	return runUntilDone(ctx, engine, opts.duration, widgets)
}

func startMonitor(
	opts panelOptions,
	engine timing.Engine,
	canvas *render.Canvas,
	widgets []widget.Widget,
) {
	m := monitoring.NewMonitor().WithPortNumber(opts.monitorPort)
	m.RegisterEngine(engine)
	m.RegisterScene(canvas)

	for _, w := range widgets {
		m.RegisterWidget(w)
	}

	url := m.StartServer()

	if opts.open {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open %s: %v\n", url, err)
		}
	}
}

// runUntilDone runs the engine until ctx is done or d has passed, then stops
// it and destroys the widgets.
func runUntilDone(
	ctx context.Context,
	engine *timing.RealTimeEngine,
	d time.Duration,
	widgets []widget.Widget,
) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	engine.Stop()
	err := <-errCh

	for _, w := range widgets {
		w.Destroy()
	}

	return err
}
