// Command server runs the traffic simulation in real time. It generates a map
// from traffic.cfg.json, drives the world on a fixed tick, streams frames to
// presentation clients and reads operator commands from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cxd309/traffic-sim/internal/config"
	"github.com/cxd309/traffic-sim/internal/control"
	"github.com/cxd309/traffic-sim/internal/engine"
	"github.com/cxd309/traffic-sim/internal/journal"
	"github.com/cxd309/traffic-sim/internal/logging"
	"github.com/cxd309/traffic-sim/internal/stream"
	"github.com/cxd309/traffic-sim/internal/telemetry"
)

const appName = "traffic"

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	flag.Parse()

	if err := run(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "traffic: %v\n", err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	sessionStart := time.Now()
	file, err := logging.OpenFile(cfg.LogsDir, appName, sessionStart)
	if err != nil {
		return err
	}
	defer file.Close()
	log := logging.Console(os.Stderr, file, logging.ParseLevel(cfg.LogLevel))
	log.Info().Str("loglevel", log.GetLevel().String()).Str("file", file.Name()).Msg("Logging set up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := telemetry.New(telemetry.Meter())
	if err != nil {
		return err
	}

	opts := engine.DefaultOptions()
	opts.Seed = cfg.Sim.Seed
	opts.SpawnDelay = cfg.Sim.SpawnDelay
	opts.MaxVehicles = cfg.Sim.MaxVehicles
	opts.Logger = log
	opts.Metrics = metrics

	if cfg.Journal.Enabled {
		rec, err := openJournal(cfg.Journal, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				log.Error().Err(err).Msg("closing journal")
			}
			log.Info().Int64("written", rec.Written()).Int64("dropped", rec.Dropped()).Msg("journal closed")
		}()
		opts.Trips = rec
	}

	world, err := engine.NewWorld(opts)
	if err != nil {
		return err
	}
	if err := world.SetTimeOfDay(cfg.Sim.TimeOfDay); err != nil {
		return err
	}
	if err := world.SetWeather(cfg.Sim.ParsedWeather()); err != nil {
		return err
	}
	if err := world.Generate(cfg.Map); err != nil {
		return err
	}
	log.Info().Uint64("seed", world.Seed()).Msg("world ready")

	term := control.New(world)
	runner := engine.NewRunner(world, cfg.Sim.TickInterval, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(ctx) })
	if cfg.Stream.Enabled {
		srv := stream.New(world, term, stream.Config{
			Addr:          cfg.Stream.Addr,
			FrameInterval: cfg.Stream.FrameInterval,
			Logger:        log,
		})
		g.Go(func() error { return srv.ListenAndServe(ctx) })
	}
	// stdin cannot be interrupted; the reader dies with the process
	go readCommands(os.Stdin, os.Stdout, term, log)

	err = g.Wait()
	stats := world.Stats()
	log.Info().
		Uint64("ticks", stats.Tick).
		Int("spawned", stats.Spawned).
		Int("arrived", stats.Arrived).
		Int("terminated", stats.Terminated).
		Int("drained", stats.Drained).
		Int("deadlocks", stats.Deadlocks).
		Msg("simulation finished")
	return err
}

func openJournal(cfg config.JournalConfig, log zerolog.Logger) (*journal.Recorder, error) {
	db, err := journal.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	rec, err := journal.NewRecorder(db, cfg.BatchSize, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Driver).Int("batch", cfg.BatchSize).Msg("trip journal enabled")
	return rec, nil
}

func readCommands(in io.Reader, out io.Writer, term *control.Terminal, log zerolog.Logger) {
	for _, line := range control.Greeting() {
		fmt.Fprintln(out, line)
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines, err := term.Execute(scanner.Text())
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
		if err != nil {
			log.Debug().Err(err).Msg("command failed")
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("reading commands")
	}
}
