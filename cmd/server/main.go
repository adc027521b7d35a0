package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/partydeck/party-server-go/internal/config"
	"github.com/partydeck/party-server-go/internal/deck"
	"github.com/partydeck/party-server-go/internal/game"
	"github.com/partydeck/party-server-go/internal/server"
	"github.com/partydeck/party-server-go/internal/store"
	"github.com/partydeck/party-server-go/internal/ws"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting partydeck server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Persistence gateway: Postgres when configured, in-memory otherwise.
	var gateway store.Gateway
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgres(ctx, cfg.Database.URL, cfg.Database.MaxConns, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		gateway = pg
	} else {
		logger.Warn("no database configured, state is not durable")
		gateway = store.NewMemory()
	}
	defer gateway.Close()

	// Deck definitions: configured file or the built-in set.
	defs := deck.DefaultDefinitions()
	if cfg.Game.DeckFile != "" {
		defs, err = deck.LoadDefinitions(cfg.Game.DeckFile)
		if err != nil {
			logger.Fatal("failed to load deck definitions", zap.Error(err))
		}
	}

	decks, err := deck.NewStore(defs, logger,
		deck.WithReplacementMemory(cfg.Game.ReplacementMemory),
	)
	if err != nil {
		logger.Fatal("failed to build deck store", zap.Error(err))
	}
	logger.Info("deck store initialized", zap.Strings("deck_types", decks.DeckTypes()))

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	gameMgr := game.NewManager(decks, gateway, logger,
		game.WithBroadcaster(hub),
		game.WithPromptTimeLimit(cfg.Game.PromptTimeLimit),
	)
	logger.Info("game manager initialized")

	api := server.New(gameMgr, cfg.Game.ReplacementMaxAttempts, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	api.Register(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.Address))
		if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	logger.Info("partydeck server initialized",
		zap.String("version", version),
		zap.String("address", cfg.Server.Address),
		zap.Int("deck_count", len(defs)),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("partydeck server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
