package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/pong-platform/config"
	"github.com/Dosada05/pong-platform/db"
	"github.com/Dosada05/pong-platform/game"
	"github.com/Dosada05/pong-platform/handlers"
	"github.com/Dosada05/pong-platform/repositories"
	api "github.com/Dosada05/pong-platform/routes"
	"github.com/Dosada05/pong-platform/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// repositories
	txRunner := repositories.NewTxRunner(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	entryRepo := repositories.NewPostgresEntryRepository(dbConn)
	tournamentMatchRepo := repositories.NewPostgresTournamentMatchRepository(dbConn)
	casualMatchRepo := repositories.NewPostgresCasualMatchRepository(dbConn)

	// services
	statsReporter := services.NewHTTPStatsReporter(cfg.StatsServiceURL)
	tournamentService := services.NewTournamentService(
		txRunner,
		tournamentRepo,
		entryRepo,
		tournamentMatchRepo,
		statsReporter,
		logger,
	)
	casualMatchService := services.NewCasualMatchService(casualMatchRepo)
	logger.Info("services initialized")

	// live match infrastructure. The websocket handler installs the hub's
	// event callbacks, so it must be built before the hub starts.
	wsHub := game.NewHub(logger)
	orchestrator := game.NewOrchestrator(wsHub, statsReporter, logger)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, orchestrator, cfg.JWTSecretKey, logger)
	go wsHub.Run()

	orchestratorCtx, stopOrchestrator := context.WithCancel(context.Background())
	defer stopOrchestrator()
	go orchestrator.Run(orchestratorCtx)
	logger.Info("game orchestrator started")

	// HTTP surface
	router := api.SetupRoutes(api.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Match:      handlers.NewMatchHandler(casualMatchService),
		WebSocket:  webSocketHandler,
	}, cfg.JWTSecretKey)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
