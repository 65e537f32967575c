// Command urlsentinel runs the URL analysis pipeline as an HTTP service:
// load configuration, assemble every pipeline component, then serve
// requests until interrupted. Grounded on the reference service's
// cmd/netzilla/main.go lifecycle (config/logger setup, signal-driven
// graceful shutdown), with the CLI-menu entry point dropped since this
// pipeline is API-only.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/cyberzilla/urlsentinel/internal/api"
	"github.com/cyberzilla/urlsentinel/internal/cache"
	"github.com/cyberzilla/urlsentinel/internal/config"
	"github.com/cyberzilla/urlsentinel/internal/metrics"
	"github.com/cyberzilla/urlsentinel/internal/mlpredictor"
	"github.com/cyberzilla/urlsentinel/internal/netprobe"
	"github.com/cyberzilla/urlsentinel/internal/normalize"
	"github.com/cyberzilla/urlsentinel/internal/orchestrator"
	"github.com/cyberzilla/urlsentinel/internal/psl"
	"github.com/cyberzilla/urlsentinel/internal/reputation"
	"github.com/cyberzilla/urlsentinel/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	l := logger.NewLogger()

	suffixes := psl.New()
	normalizer := normalize.New(suffixes)

	budgets := netprobe.Budgets{
		DNSTimeout:   time.Duration(cfg.Probe.DNSTimeoutMS) * time.Millisecond,
		TLSTimeout:   time.Duration(cfg.Probe.TLSTimeoutMS) * time.Millisecond,
		HTTPTimeout:  time.Duration(cfg.Probe.HTTPTimeoutMS) * time.Millisecond,
		MaxRedirects: cfg.Probe.MaxRedirects,
	}
	prober := netprobe.New(budgets, suffixes)

	repTable := reputation.Default(cfg.Probe.WhoisEnabled)

	model, err := mlpredictor.Load(cfg.Model.ModelPath)
	if err != nil {
		l.Error("failed to load scoring model: %v", err)
		os.Exit(1)
	}

	store := buildCacheStore(cfg, l)
	reg := metrics.New()

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.WhoisEnabled = cfg.Probe.WhoisEnabled
	orch := orchestrator.New(orchCfg, normalizer, prober, repTable, model, store, reg)

	server := api.NewServer(orch, reg, l, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		l.Info("shutting down")
		cancel()
	}()

	l.Info("starting urlsentinel API server")
	if err := server.Run(ctx); err != nil {
		l.Error("API server failed: %v", err)
		os.Exit(1)
	}
}

func buildCacheStore(cfg *config.Config, l *logger.Logger) cache.Store {
	if !cfg.Cache.Enabled {
		return nil
	}
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			l.Warn("redis unavailable at %s, falling back to in-memory cache: %v", cfg.Redis.Addr, err)
			return cache.NewMemoryStore(cfg.Cache.SizeEntries, ttl)
		}
		return cache.NewRedisStore(client, ttl)
	}

	return cache.NewMemoryStore(cfg.Cache.SizeEntries, ttl)
}
