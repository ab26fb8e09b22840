// Command wavescope runs the signal workbench headless: it generates the
// configured signal into the history ring, keeps the analysis loop
// rendering frames from it and reports worker status on stderr.
//
// Usage:
//
//	wavescope [flags]
//
// Examples:
//
//	wavescope -duration 10s
//	wavescope -rate 8000 -chunk 512 -transform builtin:dwt_wpt
//	wavescope -preset session.json -csv capture.csv
//	wavescope -plugins ./plugins -list-transforms
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/wavescope/monitor"
	"github.com/cwbudde/wavescope/params"
	"github.com/cwbudde/wavescope/pipeline"
	"github.com/cwbudde/wavescope/preset"
	"github.com/cwbudde/wavescope/ring"
	"github.com/cwbudde/wavescope/schema"
	sig "github.com/cwbudde/wavescope/signal"
	"github.com/cwbudde/wavescope/transform"
	"github.com/cwbudde/wavescope/transform/cwt"
	"github.com/cwbudde/wavescope/transform/stft"
	"github.com/cwbudde/wavescope/transform/wasmhost"
	"github.com/cwbudde/wavescope/transform/wpt"
)

// ringSeconds is how much history the ring holds at the configured rate.
const ringSeconds = 60

type options struct {
	presetPath     string
	duration       time.Duration
	rate           float64
	chunk          int
	window         float64
	fps            float64
	transformID    string
	pluginDir      string
	components     string
	csvPath        string
	monitor        bool
	listTransforms bool
}

func main() {
	var opts options
	flag.StringVar(&opts.presetPath, "preset", "", "preset file to apply on startup")
	flag.DurationVar(&opts.duration, "duration", 0, "stop after this long (0 = run until interrupted)")
	flag.Float64Var(&opts.rate, "rate", 0, "sample rate in Hz (overrides preset)")
	flag.IntVar(&opts.chunk, "chunk", 0, "chunk length in samples (overrides preset)")
	flag.Float64Var(&opts.window, "window", 0, "analysis window in seconds (overrides preset)")
	flag.Float64Var(&opts.fps, "fps", 0, "analysis frame rate (overrides preset)")
	flag.StringVar(&opts.transformID, "transform", "", "transform id (overrides preset)")
	flag.StringVar(&opts.pluginDir, "plugins", "", "directory scanned for .wasm transform plugins")
	flag.StringVar(&opts.components, "components", "", "comma list of component kinds replacing the default signal")
	flag.StringVar(&opts.csvPath, "csv", "", "append generated chunks to this file as t_sec,x rows")
	flag.BoolVar(&opts.monitor, "monitor", false, "play the generated signal on the default audio device")
	flag.BoolVar(&opts.listTransforms, "list-transforms", false, "list registered transforms and exit")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wavescope [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the signal analysis workbench without a UI.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  wavescope -duration 10s\n")
		fmt.Fprintf(os.Stderr, "  wavescope -rate 8000 -transform builtin:dwt_wpt\n")
		fmt.Fprintf(os.Stderr, "  wavescope -preset session.json -csv capture.csv\n")
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, host, err := buildRegistry(ctx, opts.pluginDir, logger)
	if err != nil {
		return err
	}
	if host != nil {
		defer host.Close()
	}
	defer reg.Close()

	if opts.listTransforms {
		listTransforms(reg)
		return nil
	}

	eng := sig.NewEngine()
	if err := defaultComponents(eng); err != nil {
		return err
	}
	store := params.NewStore()

	if opts.presetPath != "" {
		p, err := preset.Load(opts.presetPath)
		if err != nil {
			return err
		}
		for _, note := range preset.Apply(p, eng, store) {
			logger.Warn("preset", "note", note)
		}
	}

	store.UpdateGlobals(func(g *params.Globals) {
		if opts.rate > 0 {
			g.SampleRate = opts.rate
		}
		if opts.chunk > 0 {
			g.ChunkLen = opts.chunk
		}
		if opts.window > 0 {
			g.WindowSeconds = opts.window
		}
		if opts.fps > 0 {
			g.FrameRate = opts.fps
		}
		g.Paused = false
	})
	if opts.transformID != "" {
		store.SetTransform(opts.transformID, nil)
	}

	if opts.components != "" {
		states, notes := parseComponents(opts.components)
		for _, note := range notes {
			logger.Warn("components", "note", note)
		}
		eng.ReplaceComponents(states)
	}

	gl := store.Globals()
	buf, err := ring.New(int(gl.SampleRate) * ringSeconds)
	if err != nil {
		return err
	}

	var csvFile *os.File
	var csvw *bufio.Writer
	if opts.csvPath != "" {
		csvFile, csvw, err = openCSV(opts.csvPath)
		if err != nil {
			return err
		}
		defer csvFile.Close()
	}

	var player *monitor.Player
	if opts.monitor {
		player, err = monitor.NewPlayer(int(gl.SampleRate))
		if err != nil {
			return err
		}
		defer player.Close()
		player.Start()
	}

	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	gen := pipeline.NewGenerator(eng, buf, store, pipeline.WithGeneratorLogger(logger))
	an := pipeline.NewAnalyzer(reg, store, buf, pipeline.WithAnalyzerLogger(logger))

	logger.Info("workbench started",
		"rate", gl.SampleRate, "chunk", gl.ChunkLen,
		"window_s", gl.WindowSeconds, "fps", gl.FrameRate,
		"transform", store.Snapshot().TransformID)

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gen.Run(ctx) })
	g.Go(func() error { return an.Run(ctx) })
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case msg := <-an.Status():
				logger.Warn("analysis", "status", msg)
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case c := <-gen.Chunks():
				if player != nil {
					player.Push(c.Samples)
				}
				if csvw != nil {
					if err := writeChunkCSV(csvw, c); err != nil {
						return err
					}
				}
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case res := <-an.Results():
				logger.Debug("frame", "rows", res.Rows(), "cols", res.Cols(), "y", res.YLabel)
			}
		}
	})

	err = g.Wait()
	if csvw != nil {
		if ferr := csvw.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("flush csv: %w", ferr)
		}
	}

	logger.Info("session finished",
		"chunks", gen.Generated(),
		"frames", an.Frames(),
		"uptime", time.Since(start).Round(time.Millisecond))

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func buildRegistry(ctx context.Context, pluginDir string, logger *slog.Logger) (*transform.Registry, *wasmhost.Host, error) {
	regOpts := []transform.RegistryOption{
		transform.WithBuiltins(cwt.New(), stft.New(), wpt.New()),
		transform.WithLogger(logger),
	}
	var host *wasmhost.Host
	if pluginDir != "" {
		h, err := wasmhost.NewHost(ctx, wasmhost.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		host = h
		regOpts = append(regOpts,
			transform.WithExternalDir(pluginDir),
			transform.WithLoader(".wasm", h.Loader()))
	}
	reg := transform.NewRegistry(regOpts...)
	n := reg.ReloadAll()
	logger.Debug("transforms registered", "count", n)
	return reg, host, nil
}

func listTransforms(reg *transform.Registry) {
	for _, e := range reg.List() {
		fmt.Printf("%-24s %-9s %-6s %s\n", e.Info.ID, e.Info.Kind, e.Info.Version, e.Info.Name)
	}
}

// defaultComponents installs the out-of-the-box signal: broadband noise
// under a strong slow sine and a weaker fast one.
func defaultComponents(eng *sig.Engine) error {
	specs := []struct {
		kind   string
		params schema.Values
	}{
		{sig.KindNoise, schema.Values{"sigma": 0.15}},
		{sig.KindSine, schema.Values{"frequency": 6.0, "amplitude": 1.0}},
		{sig.KindSine, schema.Values{"frequency": 30.0, "amplitude": 0.4}},
	}
	for _, s := range specs {
		if _, err := eng.AddComponent(s.kind, s.params, true); err != nil {
			return err
		}
	}
	return nil
}

func parseComponents(spec string) ([]sig.ComponentState, []string) {
	var states []sig.ComponentState
	var notes []string
	for _, field := range strings.Split(spec, ",") {
		kind := strings.ToLower(strings.TrimSpace(field))
		if kind == "" {
			continue
		}
		if _, ok := sig.SchemaFor(kind); !ok {
			notes = append(notes, fmt.Sprintf("unknown component kind %q", kind))
			continue
		}
		states = append(states, sig.ComponentState{Kind: kind, Enabled: true})
	}
	return states, notes
}

func openCSV(path string) (*os.File, *bufio.Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat csv %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if st.Size() == 0 {
		fmt.Fprintln(w, "t_sec,x")
	}
	return f, w, nil
}

func writeChunkCSV(w *bufio.Writer, c pipeline.Chunk) error {
	for i, v := range c.Samples {
		t := c.StartTime + float64(i)/c.SampleRate
		if _, err := fmt.Fprintf(w, "%.6f,%g\n", t, v); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	return nil
}
