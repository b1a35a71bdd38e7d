package main

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/johncui/hydrogpt/pkg/chat"
	"github.com/johncui/hydrogpt/pkg/config"
	"github.com/johncui/hydrogpt/pkg/engine"
	"github.com/johncui/hydrogpt/pkg/engine/respond"
	"github.com/johncui/hydrogpt/pkg/engine/search"
	"github.com/johncui/hydrogpt/pkg/knowledge"
	"github.com/johncui/hydrogpt/pkg/logging"
	"github.com/johncui/hydrogpt/pkg/memory"
	"github.com/johncui/hydrogpt/pkg/metrics"
	"github.com/johncui/hydrogpt/pkg/store"
)

// app holds every component built from one configuration.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	kv        store.KV
	registry  *prometheus.Registry
	engine    *engine.Engine
	chats     *chat.Manager
	knowledge *knowledge.Base
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	kv, err := store.Open(ctx, store.Options{
		Backend:     cfg.Storage.Backend,
		DBPath:      cfg.Storage.SQLitePath,
		BusyTimeout: cfg.Storage.BusyTimeout,
		RedisURL:    cfg.Storage.RedisURL,
		KeyPrefix:   cfg.Storage.KeyPrefix,
		Logger:      logger,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open storage", goerr.V("backend", cfg.Storage.Backend))
	}
	archive := store.NewArchive(kv)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var chooser respond.Chooser
	simulated := search.NewSimulated(cfg.Engine.SearchDelay, cfg.Engine.SearchJitter)
	if cfg.Engine.Seed != 0 {
		chooser = rand.New(rand.NewPCG(cfg.Engine.Seed, 1))
		simulated.Rand = rand.New(rand.NewPCG(cfg.Engine.Seed, 2))
	}

	eng := engine.New(ctx, engine.Options{
		Memory:   memory.NewConversationMemory(cfg.Engine.MemoryLimit),
		Selector: respond.NewSelector(chooser),
		Searcher: simulated,
		Archive:  archive,
		Metrics:  m,
		Logger:   logger,
	})

	chats, err := chat.New(ctx, chat.Options{
		Generator: eng,
		Archive:   archive,
		Metrics:   m,
		Logger:    logger,
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		kv:        kv,
		registry:  registry,
		engine:    eng,
		chats:     chats,
		knowledge: knowledge.New(ctx, knowledge.Options{Archive: archive, Metrics: m, Logger: logger}),
	}, nil
}

func (a *app) Close() error {
	return a.kv.Close()
}
