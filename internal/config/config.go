package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"cnpjserver/registry"
)

// Config configuração do serviço, carregada de variáveis de ambiente.
// Timeout, retries, backoff e throttle são valores explícitos passados aos
// construtores do cliente e do pipeline, nunca globais de processo.
type Config struct {
	// Servidor
	Port string `json:"port"`

	// Histórico de execuções
	RunsDatabasePath string `json:"runs_database_path"`

	// Consulta ao registro
	RegistryBaseURL string        `json:"registry_base_url"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	MaxRetries      int           `json:"max_retries"`
	BackoffBase     time.Duration `json:"backoff_base"`

	// Pipeline
	ThrottleDelay time.Duration `json:"throttle_delay"`
	CNPJColumn    string        `json:"cnpj_column"`

	// Upload
	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// Logging
	LogLevel string `json:"log_level"`
}

// LoadConfig carrega a configuração do ambiente com os padrões do serviço
func LoadConfig() (*Config, error) {
	config := &Config{
		Port: getEnv("SERVER_PORT", "8080"),

		RunsDatabasePath: getEnv("RUNS_DATABASE_PATH", "runs.db"),

		RegistryBaseURL: getEnv("BRASILAPI_BASE_URL", registry.DefaultBaseURL),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		BackoffBase:     getEnvDuration("BACKOFF_BASE", 800*time.Millisecond),

		ThrottleDelay: getEnvDuration("THROTTLE_DELAY", 150*time.Millisecond),
		CNPJColumn:    getEnv("CNPJ_COLUMN", "CNPJ"),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 50<<20),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// RegistryConfig projeta a parte do cliente do registro
func (c *Config) RegistryConfig() registry.Config {
	return registry.Config{
		BaseURL:     c.RegistryBaseURL,
		Timeout:     c.RequestTimeout,
		MaxRetries:  c.MaxRetries,
		BackoffBase: c.BackoffBase,
	}
}

// Validate valida a configuração
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.RegistryBaseURL == "" {
		return fmt.Errorf("registry base URL must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.BackoffBase < 0 {
		return fmt.Errorf("backoff base must not be negative, got %v", c.BackoffBase)
	}
	if c.ThrottleDelay < 0 {
		return fmt.Errorf("throttle delay must not be negative, got %v", c.ThrottleDelay)
	}
	if c.CNPJColumn == "" {
		return fmt.Errorf("CNPJ column name must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// getEnv obtém uma variável de ambiente ou o valor padrão
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt obtém uma variável de ambiente como int ou o valor padrão
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 obtém uma variável de ambiente como int64 ou o valor padrão
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration obtém uma variável de ambiente como Duration ou o valor padrão
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
