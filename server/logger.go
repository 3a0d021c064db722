package server

import (
	"log/slog"
	"os"
	"strings"
)

var (
	// Logger logger estruturado global do serviço
	Logger *slog.Logger
)

func init() {
	Logger = newLogger("INFO")
	slog.SetDefault(Logger)
}

// ConfigureLogger reconfigura o nível do logger global
func ConfigureLogger(level string) {
	Logger = newLogger(level)
	slog.SetDefault(Logger)
}

// newLogger cria um logger JSON no nível pedido
func newLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
