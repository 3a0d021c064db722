package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cnpjserver/database"
	"cnpjserver/internal/config"
	"cnpjserver/registry"
)

const (
	validCNPJ   = "11222333000181"
	invalidCNPJ = "11222333000180"
)

// newTestRouter monta o roteador com um registro fake e banco temporário
func newTestRouter(t *testing.T, registryHandler http.HandlerFunc) (*gin.Engine, *database.RunsDB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := httptest.NewServer(registryHandler)
	t.Cleanup(fake.Close)

	cfg := &config.Config{
		Port:             "8080",
		RunsDatabasePath: filepath.Join(t.TempDir(), "runs.db"),
		RegistryBaseURL:  fake.URL,
		RequestTimeout:   5 * time.Second,
		MaxRetries:       0,
		BackoffBase:      time.Millisecond,
		ThrottleDelay:    0,
		CNPJColumn:       "CNPJ",
		MaxUploadBytes:   10 << 20,
		LogLevel:         "ERROR",
	}

	runs, err := database.OpenRunsDB(cfg.RunsDatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	client := registry.NewClient(cfg.RegistryConfig())
	h := NewHandler(cfg, client, runs)

	router := gin.New()
	api := router.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/cnpj/:cnpj", h.LookupCNPJ)
	api.POST("/enrich", h.EnrichFile)
	api.GET("/runs", h.ListRuns)

	return router, runs
}

func registryFixture(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"razao_social": "EMPRESA EXEMPLO LTDA",
			"nome_fantasia": "EXEMPLO",
			"cnae_fiscal": 6201501,
			"cnae_fiscal_descricao": "Desenvolvimento de programas de computador sob encomenda",
			"municipio": "SAO PAULO",
			"uf": "SP"
		}`))
	}
}

// buildUpload monta um corpo multipart com uma planilha xlsx gerada em memória
func buildUpload(t *testing.T, column string, cnpjs []string) (*bytes.Buffer, string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetCellValue("Sheet1", "A1", column))
	for i, cnpj := range cnpjs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", cell, cnpj))
	}

	var sheet bytes.Buffer
	require.NoError(t, f.Write(&sheet))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "fornecedores.xlsx")
	require.NoError(t, err)
	_, err = part.Write(sheet.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, registryFixture(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestLookupCNPJSuccess(t *testing.T) {
	router, _ := newTestRouter(t, registryFixture(t))

	w := httptest.NewRecorder()
	// Valor com pontuação é normalizado antes da consulta
	req := httptest.NewRequest(http.MethodGet, "/api/cnpj/11.222.333.0001-81", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result registry.LookupResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, validCNPJ, result.CNPJ)
	assert.Equal(t, "EMPRESA EXEMPLO LTDA", result.Company.RazaoSocial)
}

func TestLookupCNPJInvalidChecksum(t *testing.T) {
	called := false
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cnpj/"+invalidCNPJ, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, called, "invalid CNPJ must not reach the registry")
	assert.Contains(t, w.Body.String(), `"invalid_checksum"`)
}

func TestLookupCNPJNotFound(t *testing.T) {
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "CNPJ não encontrado"}`))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cnpj/"+validCNPJ, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"not_found"`)
}

func TestEnrichFile(t *testing.T) {
	router, runs := newTestRouter(t, registryFixture(t))

	body, contentType := buildUpload(t, "CNPJ", []string{
		"11.222.333/0001-81",
		invalidCNPJ,
		validCNPJ, // duplicata do primeiro após normalização
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/enrich", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ResultFileName)
	assert.Equal(t, "3", w.Header().Get("X-Enrichment-Rows"))
	assert.Equal(t, "2", w.Header().Get("X-Enrichment-Unique"))
	assert.Equal(t, "1", w.Header().Get("X-Enrichment-Success"))
	assert.Equal(t, "1", w.Header().Get("X-Enrichment-Invalid"))
	assert.Equal(t, "0", w.Header().Get("X-Enrichment-Errors"))

	// O anexo é um xlsx válido com as colunas de resultado
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Resultado")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Contains(t, rows[0], "_CNPJ_VALIDO")
	assert.Contains(t, rows[0], "Razão Social")
	assert.Equal(t, validCNPJ, rows[1][0], "normalized CNPJ replaces the raw value")

	// A execução fica registrada no histórico
	records, err := runs.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fornecedores.xlsx", records[0].FileName)
	assert.Equal(t, 3, records[0].Rows)
	assert.Equal(t, 2, records[0].Unique)
}

func TestEnrichFileMissingFile(t *testing.T) {
	router, _ := newTestRouter(t, registryFixture(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/enrich", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrichFileMissingColumn(t *testing.T) {
	router, _ := newTestRouter(t, registryFixture(t))

	body, contentType := buildUpload(t, "Identificador", []string{validCNPJ})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/enrich", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func TestListRuns(t *testing.T) {
	router, runs := newTestRouter(t, registryFixture(t))

	require.NoError(t, runs.SaveRun(&database.RunRecord{FileName: "a.xlsx", Rows: 2}))
	require.NoError(t, runs.SaveRun(&database.RunRecord{FileName: "b.csv", Rows: 7}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Runs []database.RunRecord `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Runs, 2)
	assert.Equal(t, "b.csv", payload.Runs[0].FileName)
}

func TestListRunsEmpty(t *testing.T) {
	router, _ := newTestRouter(t, registryFixture(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"runs":[]`)
}
