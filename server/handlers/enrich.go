package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cnpjserver/database"
	"cnpjserver/enrichment"
	"cnpjserver/exporter"
	"cnpjserver/importer"
	"cnpjserver/internal/config"
	"cnpjserver/quality"
	"cnpjserver/registry"
)

// ResultFileName nome do anexo xlsx devolvido pelo endpoint de enriquecimento
const ResultFileName = "resultado_cnaes.xlsx"

// Handler agrupa as dependências dos endpoints da API
type Handler struct {
	config *config.Config
	client *registry.Client
	runs   *database.RunsDB
}

// NewHandler cria o handler da API
func NewHandler(cfg *config.Config, client *registry.Client, runs *database.RunsDB) *Handler {
	return &Handler{
		config: cfg,
		client: client,
		runs:   runs,
	}
}

// Health responde o healthcheck do serviço
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "cnpjserver",
	})
}

// LookupCNPJ consulta um único CNPJ: GET /api/cnpj/:cnpj.
// O identificador é normalizado e validado antes de qualquer chamada de rede.
func (h *Handler) LookupCNPJ(c *gin.Context) {
	raw := c.Param("cnpj")
	cnpj := quality.NormalizeCNPJ(raw)

	if !quality.ValidateCNPJ(cnpj) {
		result := &registry.LookupResult{CNPJ: cnpj, Status: registry.StatusInvalidChecksum}
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	result := h.client.Lookup(cnpj)

	status := http.StatusOK
	switch result.Status {
	case registry.StatusNotFound:
		status = http.StatusNotFound
	case registry.StatusRetriesExhausted, registry.StatusNetworkError, registry.StatusPermanentError:
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}

// EnrichFile recebe uma planilha via multipart e devolve o xlsx enriquecido:
// POST /api/enrich, campo "file" obrigatório, campos "sheet" e "column" opcionais.
// Os contadores da execução saem nos cabeçalhos X-Enrichment-*.
func (h *Handler) EnrichFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, "file field is required", err)
		return
	}
	if fileHeader.Size > h.config.MaxUploadBytes {
		SendJSONError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds upload limit of %d bytes", h.config.MaxUploadBytes), nil)
		return
	}

	sheet := c.PostForm("sheet")
	column := c.PostForm("column")
	if column == "" {
		column = h.config.CNPJColumn
	}

	table, err := h.readUpload(fileHeader.Filename, fileHeader, sheet)
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	pipeline := enrichment.NewPipeline(h.client, h.config.ThrottleDelay)
	start := time.Now()

	out, summary, err := pipeline.Enrich(table, column)
	if err != nil {
		SendJSONError(c, http.StatusUnprocessableEntity, err.Error(), err)
		return
	}

	h.recordRun(fileHeader.Filename, summary, time.Since(start))

	var buf bytes.Buffer
	if err := exporter.WriteExcel(out, &buf); err != nil {
		SendJSONError(c, http.StatusInternalServerError, "failed to build result file", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ResultFileName))
	c.Header("X-Enrichment-Rows", strconv.Itoa(summary.Rows))
	c.Header("X-Enrichment-Unique", strconv.Itoa(summary.Unique))
	c.Header("X-Enrichment-Success", strconv.Itoa(summary.Success))
	c.Header("X-Enrichment-Invalid", strconv.Itoa(summary.Invalid))
	c.Header("X-Enrichment-Errors", strconv.Itoa(summary.Errors))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ListRuns devolve o histórico de execuções: GET /api/runs?limit=N
func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, err := h.runs.ListRuns(limit)
	if err != nil {
		SendJSONError(c, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []database.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// readUpload abre o arquivo enviado e despacha o parser pela extensão
func (h *Handler) readUpload(filename string, fileHeader *multipart.FileHeader, sheet string) (*importer.Table, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return importer.ReadExcel(file, sheet)
	case ".csv":
		return importer.ReadCSV(file)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filename)
	}
}

// recordRun persiste os contadores da execução; falha de histórico não derruba a resposta
func (h *Handler) recordRun(filename string, summary *enrichment.Summary, elapsed time.Duration) {
	if h.runs == nil {
		return
	}

	rec := &database.RunRecord{
		FileName:   filename,
		Rows:       summary.Rows,
		Unique:     summary.Unique,
		Success:    summary.Success,
		Invalid:    summary.Invalid,
		Errors:     summary.Errors,
		DurationMS: elapsed.Milliseconds(),
	}
	if err := h.runs.SaveRun(rec); err != nil {
		slog.Error("failed to record enrichment run", "file", filename, "error", err)
	}
}
