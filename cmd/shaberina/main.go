// Command shaberina is the Discord read-aloud bot. It connects Discord,
// PostgreSQL and Open JTalk, and reads text channel messages into voice
// channels.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sabrina-ksks/shaberina/internal/config"
	"github.com/sabrina-ksks/shaberina/internal/confstore"
	"github.com/sabrina-ksks/shaberina/internal/discord"
	"github.com/sabrina-ksks/shaberina/internal/observe"
	"github.com/sabrina-ksks/shaberina/internal/tts"
)

const version = "1.0.0"

func main() {
	os.Exit(run())
}

func run() int {
	// A .env file is optional; the environment may already be set.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shaberina: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Bot.LogLevel)
	slog.SetDefault(logger)

	slog.Info("shaberina starting", "config", *configPath, "log_level", cfg.Bot.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	var metricsSrv *http.Server
	if cfg.Telemetry.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.Telemetry.MetricsAddr, Handler: mux}
		go func() {
			slog.Info("metrics endpoint listening", "addr", cfg.Telemetry.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "err", err)
			}
		}()
	}

	// ── Database ──────────────────────────────────────────────────────────────
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		slog.Error("invalid postgres dsn", "err", err)
		return 1
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		slog.Error("failed to connect to postgres", "err", err)
		return 1
	}
	defer pool.Close()

	store := confstore.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		slog.Error("failed to migrate schema", "err", err)
		return 1
	}
	conf := confstore.NewService(store,
		confstore.WithCacheSizes(cfg.Cache.Users, cfg.Cache.Guilds),
		confstore.WithLogger(logger),
		confstore.WithMetrics(metrics),
	)

	// ── Synthesizer ───────────────────────────────────────────────────────────
	synth, err := tts.NewOpenJTalk(cfg.TTS.Dir, cfg.TTS.OutDir,
		tts.WithLogger(logger),
		tts.WithMetrics(metrics),
	)
	if err != nil {
		slog.Error("failed to set up open jtalk", "err", err)
		return 1
	}

	// ── Discord ───────────────────────────────────────────────────────────────
	bot, err := discord.New(
		discord.Config{Token: cfg.Bot.Token, OwnerID: cfg.Bot.OwnerID},
		conf, synth,
		discord.WithLogger(logger),
		discord.WithMetrics(metrics),
		discord.WithCueDir(cfg.Bot.SoundDir),
	)
	if err != nil {
		slog.Error("failed to start discord bot", "err", err)
		return 1
	}

	slog.Info("bot ready — press Ctrl+C to shut down")

	exitCode := 0
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		exitCode = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := bot.Voices().CloseAll(shutdownCtx); err != nil {
		slog.Warn("failed to close voice sessions", "err", err)
	}
	if err := bot.Close(); err != nil {
		slog.Warn("failed to close discord bot", "err", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to stop metrics server", "err", err)
		}
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("failed to shut down telemetry", "err", err)
	}

	slog.Info("goodbye")
	return exitCode
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
