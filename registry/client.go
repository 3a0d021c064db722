package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL endpoint público de consulta de CNPJ da BrasilAPI
const DefaultBaseURL = "https://brasilapi.com.br/api/cnpj/v1"

// Config parâmetros de consulta compartilhados por toda a execução
type Config struct {
	BaseURL     string        `json:"base_url"`
	Timeout     time.Duration `json:"timeout"`
	MaxRetries  int           `json:"max_retries"`
	BackoffBase time.Duration `json:"backoff_base"`
}

// DefaultConfig retorna a configuração padrão de consulta
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     15 * time.Second,
		MaxRetries:  3,
		BackoffBase: 800 * time.Millisecond,
	}
}

// Client cliente HTTP da BrasilAPI. Uma consulta por vez, síncrona;
// nenhum desfecho escapa como erro, tudo vira LookupResult.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient cria um novo cliente do registro
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.BackoffBase == 0 {
		config.BackoffBase = 800 * time.Millisecond
	}

	// Transport com connection pooling; uma execução faz centenas de GETs ao mesmo host
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxConnsPerHost:     5,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		config: config,
		logger: slog.Default(),
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}
}

// SetLogger substitui o logger padrão
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// retryableStatus indica os status HTTP que valem nova tentativa
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Lookup consulta um único CNPJ no registro com retry e backoff exponencial.
// O orçamento de retries cobre tanto status 429/5xx quanto falhas de transporte,
// compartilhando o mesmo contador de tentativas.
func (c *Client) Lookup(cnpj string) *LookupResult {
	url := strings.TrimRight(c.config.BaseURL, "/") + "/" + cnpj
	attempts := 0

	for {
		resp, err := c.httpClient.Get(url)
		if err != nil {
			attempts++
			if attempts > c.config.MaxRetries {
				c.logger.Error("registry lookup failed after retries",
					"cnpj", cnpj, "attempts", attempts, "error", err)
				return &LookupResult{CNPJ: cnpj, Status: StatusNetworkError, Message: err.Error()}
			}
			c.sleepBackoff(cnpj, attempts, err.Error())
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			// Corpo ilegível é tratado como corpo vazio
			body = nil
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return c.parseSuccess(cnpj, body)

		case resp.StatusCode == http.StatusNotFound:
			return &LookupResult{
				CNPJ:    cnpj,
				Status:  StatusNotFound,
				Message: providerMessage(body, "Não encontrado"),
			}

		case retryableStatus(resp.StatusCode):
			attempts++
			if attempts > c.config.MaxRetries {
				msg := providerMessage(body, fmt.Sprintf("HTTP %d", resp.StatusCode))
				c.logger.Error("registry lookup exhausted retries",
					"cnpj", cnpj, "status_code", resp.StatusCode, "attempts", attempts)
				return &LookupResult{CNPJ: cnpj, Status: StatusRetriesExhausted, Message: msg}
			}
			c.sleepBackoff(cnpj, attempts, fmt.Sprintf("HTTP %d", resp.StatusCode))

		default:
			return &LookupResult{
				CNPJ:    cnpj,
				Status:  StatusPermanentError,
				Message: providerMessage(body, fmt.Sprintf("HTTP %d", resp.StatusCode)),
			}
		}
	}
}

// parseSuccess extrai os campos de interesse de uma resposta 200.
// Corpo ausente ou ilegível como JSON equivale a um objeto vazio; um campo
// com forma inesperada não descarta os campos que decodificaram bem.
func (c *Client) parseSuccess(cnpj string, body []byte) *LookupResult {
	var payload brasilAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			c.logger.Warn("registry returned unparseable body, treating as empty",
				"cnpj", cnpj, "error", err)
			payload = brasilAPIResponse{}
		} else {
			c.logger.Warn("registry body has unexpected field shape, keeping decoded fields",
				"cnpj", cnpj, "error", err)
		}
	}

	return &LookupResult{
		CNPJ:    cnpj,
		Status:  StatusSuccess,
		Company: payload.toCompanyRecord(),
	}
}

// sleepBackoff dorme base * 2^(tentativa-1) antes do próximo retry
func (c *Client) sleepBackoff(cnpj string, attempt int, reason string) {
	delay := c.config.BackoffBase * time.Duration(1<<(attempt-1))
	c.logger.Warn("registry lookup retrying",
		"cnpj", cnpj, "attempt", attempt, "max_retries", c.config.MaxRetries,
		"delay", delay, "reason", reason)
	time.Sleep(delay)
}

// providerMessage extrai o campo message de uma resposta de erro do provedor
func providerMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		return fallback
	}
	return payload.Message
}
