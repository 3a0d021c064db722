package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cnpjserver/database"
	"cnpjserver/internal/config"
	"cnpjserver/registry"
	"cnpjserver/server"
	"cnpjserver/server/handlers"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	server.ConfigureLogger(cfg.LogLevel)

	runs, err := database.OpenRunsDB(cfg.RunsDatabasePath)
	if err != nil {
		slog.Error("failed to open runs database", "path", cfg.RunsDatabasePath, "error", err)
		os.Exit(1)
	}
	defer runs.Close()

	client := registry.NewClient(cfg.RegistryConfig())
	handler := handlers.NewHandler(cfg, client, runs)
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // enriquecimento de planilha grande é demorado
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "registry_base_url", cfg.RegistryBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
