// ABOUTME: Workload simulator that drives a collector end to end
// ABOUTME: Allocates payloads, keeps a rooted fraction and reports heap and collection stats

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/fulldump/goconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/prateek/rootgc"
	"github.com/prateek/rootgc/config"
	"github.com/prateek/rootgc/gc"
	"github.com/prateek/rootgc/graph"
	"github.com/prateek/rootgc/logging"
	"github.com/prateek/rootgc/metrics"
)

type simConfig struct {
	Config      string `usage:"path to a rootgc YAML config file"`
	Objects     int    `usage:"number of payloads to allocate"`
	KeepEvery   int    `usage:"keep every Nth payload rooted, release the rest"`
	PayloadSize int    `usage:"bytes per payload"`
	Serve       bool   `usage:"keep serving metrics after the run until interrupted"`
	Version     bool   `usage:"show version and exit"`
}

type payload struct {
	seq  int
	data []byte
}

func main() {
	sc := simConfig{
		Objects:     10000,
		KeepEvery:   50,
		PayloadSize: 256,
	}
	goconfig.Read(&sc)

	if sc.Version {
		fmt.Println("gcsim version", rootgc.Version)
		return
	}

	cfg, err := config.Load(sc.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stderr)
	reg := prometheus.NewRegistry()
	m := metrics.NewCollectorMetricsWithRegistry(reg)

	c := gc.New(cfg.Options(logger, m)...)
	if err := simulate(c, sc, logger); err != nil {
		logger.Error().Err(err).Msg("simulation failed")
		os.Exit(1)
	}

	report(c)

	stats, err := c.Close()
	if err != nil {
		logger.Error().Err(err).Msg("teardown failed")
		os.Exit(1)
	}
	fmt.Printf("teardown reclaimed %d objects\n", stats.Reclaimed)

	if sc.Serve && cfg.Observability.MetricsAddr != "" {
		serveMetrics(cfg.Observability.MetricsAddr, reg, logger)
	}
}

func simulate(c *gc.Collector, sc simConfig, logger zerolog.Logger) error {
	var kept []*gc.Handle[payload]
	keepEvery := max(sc.KeepEvery, 1)

	for i := 0; i < sc.Objects; i++ {
		h, err := gc.Allocate(c, payload{seq: i, data: make([]byte, sc.PayloadSize)})
		if errors.Is(err, gc.ErrRootStackOverflow) && len(kept) > 0 {
			// drop the oldest kept payload and retry once
			logger.Debug().Int("seq", kept[0].Value().seq).Msg("root stack full, releasing oldest payload")
			if err := kept[0].Release(); err != nil {
				return err
			}
			kept = kept[1:]
			h, err = gc.Allocate(c, payload{seq: i, data: make([]byte, sc.PayloadSize)})
		}
		if err != nil {
			return fmt.Errorf("allocate payload %d: %w", i, err)
		}

		if i%keepEvery == 0 {
			kept = append(kept, h)
			continue
		}
		if err := h.Release(); err != nil {
			return err
		}
	}

	_, err := c.CollectGarbage()
	return err
}

func report(c *gc.Collector) {
	summary := graph.Summarize(c.Snapshot())

	fmt.Printf("live objects:  %d (%d bytes)\n", summary.Objects, summary.Bytes)
	fmt.Printf("reachable:     %d (%d bytes)\n", summary.ReachableObjects, summary.ReachableBytes)
	fmt.Printf("roots:         %d of %d\n", c.RootDepth(), c.RootCapacity())
	fmt.Printf("threshold:     %d\n", c.Threshold())

	types := make([]string, 0, len(summary.ByType))
	for name := range summary.ByType {
		types = append(types, name)
	}
	sort.Strings(types)
	for _, name := range types {
		ts := summary.ByType[name]
		fmt.Printf("  %-24s %6d objects %10d bytes\n", name, ts.Count, ts.Bytes)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("metrics server shutdown")
	}
}
