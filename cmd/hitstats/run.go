package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/mucoll/hitstats/internal/aggregate"
	"github.com/mucoll/hitstats/internal/cache"
	"github.com/mucoll/hitstats/internal/config"
	"github.com/mucoll/hitstats/internal/dispatcher"
	"github.com/mucoll/hitstats/internal/driver"
	"github.com/mucoll/hitstats/internal/eventio"
	"github.com/mucoll/hitstats/internal/influx"
	"github.com/mucoll/hitstats/internal/logging"
	"github.com/mucoll/hitstats/internal/monitor"
	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/internal/storage"
	"github.com/mucoll/hitstats/pkg/core"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

type options struct {
	inputs    []string
	maxEvents int
	skip      int
	drivers   []string
	configDir string
	jobs      int
}

// parallel reports whether files can be processed independently. Skip and
// max_events count across files, so they force a single reader.
func (o options) parallel() bool {
	return o.jobs > 1 && len(o.inputs) > 1 && o.skip == 0 && o.maxEvents <= 0
}

// runner carries what every pipeline of a run shares.
type runner struct {
	env     *environment
	opts    options
	setup   driver.Setup
	schemas *cache.SchemaCache
	metrics *influx.Manager
	read    metric.Int64Counter
	events  atomic.Int64
}

func run(ctx context.Context, opts options) (*summary, error) {
	start := time.Now()

	env, err := newEnvironment(start)
	if err != nil {
		return nil, err
	}
	defer env.close()
	log := env.log

	window := config.GetWindowConfig()
	aggCfg := aggregate.Config{TMin: window.TMin, TMax: window.TMax, Cutoffs: window.Cutoffs}
	if err := aggCfg.Validate(); err != nil {
		return nil, err
	}
	r := &runner{
		env:  env,
		opts: opts,
		setup: driver.Setup{
			Window: aggCfg,
			Collections: driver.Collections{
				Tracker:     config.GetStringSlice("collections.tracker"),
				Calorimeter: config.GetStringSlice("collections.calorimeter"),
				Muon:        config.GetStringSlice("collections.muon"),
				Vertex:      config.GetStringSlice("collections.vertex"),
			},
			Logger: log,
		},
		schemas: cache.NewSchemaCache(),
	}
	for _, name := range opts.drivers {
		if _, err := driver.New(name, r.setup); err != nil {
			return nil, err
		}
	}

	total, err := eventio.Count(opts.inputs)
	if err != nil {
		return nil, err
	}
	log.Info("Total number of events in the files", "events", total, "files", len(opts.inputs))

	r.read, err = env.otel.Meter("hitstats").Int64Counter(
		"hitstats.events.read",
		metric.WithDescription("Events read from the input files"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating event counter: %w", err)
	}

	metrics := influx.NewManager(env.zlog, config.GetInfluxConfig())
	if err := metrics.Connect(ctx); err == nil {
		r.metrics = metrics
		defer metrics.Close()
	} else if !errors.Is(err, influx.ErrDisabled) {
		log.Warn("Run metrics unavailable", "error", err)
	}

	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(ctx, storageCfg, config.GetDBConfig(), log, env.zlog)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("initializing %s storage: %w", storageCfg.Type, err)
	}
	defer backend.Close()

	runInfo := &core.Run{
		Inputs:     opts.inputs,
		Drivers:    opts.drivers,
		Output:     storageCfg.Output,
		StartTime:  start,
		MaxEvents:  opts.maxEvents,
		TMin:       aggCfg.TMin,
		TMax:       aggCfg.TMax,
		Cutoffs:    aggCfg.Cutoffs,
		AppVersion: version,
	}
	if err := backend.StartRun(runInfo); err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}
	if mc := config.GetMonitorConfig(); mc.Enabled {
		mon := monitor.NewService(monitor.Dependencies{
			Logger:     log,
			Events:     r.events.Load,
			Input:      env.currentInput,
			StatusPath: filepath.Join(config.GetString("logsDir"), "status.json"),
			Interval:   mc.Interval,
		})
		if err := mon.Start(); err != nil {
			return nil, err
		}
		defer mon.Stop()
	}

	log.Info("Run started", "inputs", len(opts.inputs), "drivers", opts.drivers, "storage", storageCfg.Type, "jobs", opts.jobs)

	var acc *stats.Accumulator
	if opts.parallel() {
		acc, err = r.parallel(ctx, runInfo)
	} else {
		acc, err = r.sequential(ctx, runInfo)
	}
	if err != nil {
		log.Error("Run aborted", "events", runInfo.Events, "error", err)
		return nil, err
	}

	snapshot := acc.Snapshot()
	runInfo.EndTime = time.Now()
	if err := backend.WriteStats(snapshot); err != nil {
		return nil, fmt.Errorf("writing statistics: %w", err)
	}
	if err := backend.EndRun(); err != nil {
		return nil, fmt.Errorf("ending run: %w", err)
	}

	sum := &summary{run: runInfo, stats: snapshot, logPath: env.logPath}
	if exp, ok := backend.(storage.Exporter); ok {
		sum.output = exp.ExportedFilePath()
	}
	if r.metrics != nil {
		sum.points = r.metrics.Written()
	}
	log.Info("Run finished", "events", runInfo.Events, "skipped", runInfo.Skipped,
		"stats", len(snapshot), "duration", runInfo.EndTime.Sub(start))
	return sum, nil
}

func (r *runner) sequential(ctx context.Context, runInfo *core.Run) (*stats.Accumulator, error) {
	p, err := r.newPipeline(r.env.log)
	if err != nil {
		return nil, err
	}

	reader := eventio.NewReader(r.opts.inputs,
		eventio.WithSkip(r.opts.skip),
		eventio.WithMaxEvents(r.opts.maxEvents),
		eventio.WithLogger(r.env.log),
	)
	defer reader.Close()
	defer r.env.setInput("")

	err = p.process(ctx, reader, func(ev *core.Event, took time.Duration) {
		r.env.setInput(reader.CurrentFile())
		r.observe(ctx, ev, took)
	})
	runInfo.Events = reader.Delivered()
	runInfo.Skipped = reader.Skipped()
	if err != nil {
		return nil, err
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	return p.acc, nil
}

// parallel runs one pipeline per input file and merges the accumulators in
// input order, which gives the same result as a sequential run.
func (r *runner) parallel(ctx context.Context, runInfo *core.Run) (*stats.Accumulator, error) {
	pipelines := make([]*pipeline, len(r.opts.inputs))
	counts := make([]int, len(r.opts.inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.jobs)
	for i, path := range r.opts.inputs {
		g.Go(func() error {
			log := r.env.log.With("input", path)
			p, err := r.newPipeline(log)
			if err != nil {
				return err
			}
			reader := eventio.NewReader([]string{path}, eventio.WithLogger(log))
			defer reader.Close()

			err = p.process(gctx, reader, func(ev *core.Event, took time.Duration) {
				r.observe(gctx, ev, took)
			})
			counts[i] = reader.Delivered()
			if err != nil {
				return err
			}
			if err := p.end(); err != nil {
				return err
			}
			pipelines[i] = p
			return nil
		})
	}
	err := g.Wait()
	for _, n := range counts {
		runInfo.Events += n
	}
	if err != nil {
		return nil, err
	}

	acc := pipelines[0].acc
	for _, p := range pipelines[1:] {
		if err := acc.Merge(p.acc); err != nil {
			return nil, fmt.Errorf("merging statistics: %w", err)
		}
	}
	return acc, nil
}

// observe records per-event metrics. Metric failures never stop a run.
func (r *runner) observe(ctx context.Context, ev *core.Event, took time.Duration) {
	r.events.Add(1)
	r.read.Add(ctx, 1)
	if r.metrics == nil {
		return
	}
	point := influx.EventPoint(r.opts.drivers, eventMetrics(ev, took), time.Now())
	if err := r.metrics.WritePoint(point); err != nil {
		r.env.log.Debug("dropping event metrics", "event", ev.EventNumber, "error", err)
	}
}

func eventMetrics(ev *core.Event, took time.Duration) influx.EventMetrics {
	em := influx.EventMetrics{
		Run:         ev.RunNumber,
		Event:       ev.EventNumber,
		Collections: len(ev.Collections),
		Particles:   ev.NumParticles(),
		Duration:    took,
	}
	for _, col := range ev.Collections {
		em.Hits += col.Len()
		for i := range col.Hits {
			em.Contributions += len(col.Hits[i].Contribs())
		}
	}
	return em
}

// pipeline is the set of drivers feeding one accumulator.
type pipeline struct {
	drivers    []driver.Driver
	dispatcher *dispatcher.Dispatcher
	acc        *stats.Accumulator
}

func (r *runner) newPipeline(log *slog.Logger) (*pipeline, error) {
	agg, err := aggregate.New(r.setup.Window)
	if err != nil {
		return nil, err
	}
	disp, err := dispatcher.New(logging.NewPipelineLogger(r.env.zlog))
	if err != nil {
		return nil, err
	}

	setup := r.setup
	setup.Logger = log
	reg := stats.NewRegistry()
	acc := stats.NewAccumulator(reg)
	dctx := driver.NewContext(acc, agg, r.schemas, log)

	p := &pipeline{dispatcher: disp, acc: acc}
	for _, name := range r.opts.drivers {
		d, err := driver.New(name, setup)
		if err != nil {
			return nil, err
		}
		if err := d.StartOfData(reg); err != nil {
			return nil, fmt.Errorf("%s: start of data: %w", name, err)
		}

		opts := []dispatcher.Option{dispatcher.Logged()}
		if req, ok := d.(driver.Requirer); ok {
			opts = append(opts, dispatcher.Requires(req.Requires()...))
		}
		handler := func(_ context.Context, ev *core.Event) error {
			return d.ProcessEvent(dctx, ev)
		}
		if err := disp.Register(d.Name(), handler, opts...); err != nil {
			return nil, err
		}
		p.drivers = append(p.drivers, d)
	}
	return p, nil
}

// process dispatches every event of src. onEvent runs after each event
// that all drivers accepted.
func (p *pipeline) process(ctx context.Context, src core.EventSource, onEvent func(*core.Event, time.Duration)) error {
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, core.ErrNoMoreEvents) {
			return nil
		}
		if err != nil {
			return err
		}
		start := time.Now()
		if err := p.dispatcher.Dispatch(ctx, ev); err != nil {
			return err
		}
		if onEvent != nil {
			onEvent(ev, time.Since(start))
		}
	}
}

func (p *pipeline) end() error {
	for _, d := range p.drivers {
		if err := d.EndOfData(); err != nil {
			return fmt.Errorf("%s: end of data: %w", d.Name(), err)
		}
	}
	return nil
}
