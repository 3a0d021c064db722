package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"cnpjserver/importer"
	"cnpjserver/quality"
	"cnpjserver/registry"
)

// ValidityColumn coluna de flag anexada entre as colunas originais e as de resultado
const ValidityColumn = "_CNPJ_VALIDO"

// ResultColumns colunas de resultado, na ordem fixa de saída
var ResultColumns = []string{
	"Razão Social",
	"Nome Fantasia",
	"CNAE Principal",
	"Descrição CNAE",
	"CNAE Secundário (1º)",
	"Descrição CNAE Secundário (1º)",
	"Porte",
	"Capital Social",
	"Situação Cadastral",
	"Data Situação Cadastral",
	"Endereço (formatado)",
	"Logradouro",
	"Número",
	"Complemento",
	"Bairro",
	"Município",
	"UF",
	"CEP",
	"E-mail",
	"Telefone 1",
	"Telefone 2",
}

// Lookuper consulta um único CNPJ no registro
type Lookuper interface {
	Lookup(cnpj string) *registry.LookupResult
}

// Summary contadores agregados de uma execução
type Summary struct {
	Rows    int `json:"rows"`
	Unique  int `json:"unique"`
	Success int `json:"success"`
	Invalid int `json:"invalid"`
	Errors  int `json:"errors"` // erros e não encontrados
}

// Pipeline orquestra normalização, deduplicação, consulta e merge.
// Execução sequencial: uma chamada de rede por vez.
type Pipeline struct {
	client  Lookuper
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewPipeline cria o pipeline de enriquecimento. throttle define o intervalo
// mínimo entre consultas ao registro; zero desativa a limitação.
func NewPipeline(client Lookuper, throttle time.Duration) *Pipeline {
	p := &Pipeline{
		client: client,
		logger: slog.Default(),
	}
	if throttle > 0 {
		p.limiter = rate.NewLimiter(rate.Every(throttle), 1)
	}
	return p
}

// SetLogger substitui o logger padrão
func (p *Pipeline) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Enrich enriquece a tabela consultando o registro para cada CNPJ distinto da
// coluna indicada. A saída preserva a contagem e a ordem das linhas de entrada;
// linhas com o mesmo CNPJ compartilham o mesmo resultado. Coluna ausente é o
// único erro fatal, detectado antes de qualquer chamada de rede.
func (p *Pipeline) Enrich(table *importer.Table, column string) (*importer.Table, *Summary, error) {
	col := table.ColumnIndex(column)
	if col < 0 {
		return nil, nil, fmt.Errorf("column %q not found in spreadsheet", column)
	}

	summary := &Summary{Rows: len(table.Rows)}

	// Normaliza cada linha e coleta o conjunto de CNPJs distintos
	normalized := make([]string, len(table.Rows))
	seen := make(map[string]struct{})
	for i := range table.Rows {
		cnpj := quality.NormalizeCNPJ(table.Cell(i, col))
		normalized[i] = cnpj
		seen[cnpj] = struct{}{}
	}

	uniques := make([]string, 0, len(seen))
	for cnpj := range seen {
		uniques = append(uniques, cnpj)
	}
	sort.Strings(uniques)
	summary.Unique = len(uniques)

	p.logger.Info("enrichment started",
		"rows", summary.Rows, "unique_cnpjs", summary.Unique, "column", column)

	// Uma consulta por CNPJ distinto, em ordem determinística
	cache := NewResultCache()
	for _, cnpj := range uniques {
		if !quality.ValidateCNPJ(cnpj) {
			summary.Invalid++
			cache.Set(cnpj, &registry.LookupResult{CNPJ: cnpj, Status: registry.StatusInvalidChecksum})
			continue
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(context.Background()); err != nil {
				p.logger.Warn("throttle wait interrupted", "error", err)
			}
		}

		result := p.client.Lookup(cnpj)
		cache.Set(cnpj, result)

		if result.Failed() {
			summary.Errors++
		} else {
			summary.Success++
		}
	}

	out := p.merge(table, col, normalized, cache)

	p.logger.Info("enrichment finished",
		"rows", summary.Rows, "unique_cnpjs", summary.Unique,
		"success", summary.Success, "invalid", summary.Invalid, "errors", summary.Errors)

	return out, summary, nil
}

// merge anexa a cada linha original a flag de validade e os campos do resultado
// do seu CNPJ normalizado. O CNPJ normalizado substitui o valor bruto na coluna.
func (p *Pipeline) merge(table *importer.Table, col int, normalized []string, cache *ResultCache) *importer.Table {
	headers := make([]string, 0, len(table.Headers)+1+len(ResultColumns))
	headers = append(headers, table.Headers...)
	headers = append(headers, ValidityColumn)
	headers = append(headers, ResultColumns...)

	out := &importer.Table{
		Headers: headers,
		Rows:    make([][]string, 0, len(table.Rows)),
	}

	for i, row := range table.Rows {
		cnpj := normalized[i]
		result, ok := cache.Get(cnpj)
		if !ok {
			// Não deveria acontecer: todo CNPJ distinto foi resolvido acima
			result = &registry.LookupResult{CNPJ: cnpj, Status: registry.StatusInvalidChecksum}
		}

		merged := make([]string, 0, len(headers))
		merged = append(merged, row...)
		merged[col] = cnpj
		merged = append(merged, strconv.FormatBool(quality.ValidateCNPJ(cnpj)))
		merged = append(merged, resultFields(result)...)
		out.Rows = append(out.Rows, merged)
	}
	return out
}

// resultFields projeta um LookupResult na ordem de ResultColumns
func resultFields(r *registry.LookupResult) []string {
	c := r.Company
	return []string{
		r.DisplayName(),
		c.NomeFantasia,
		c.CNAEPrincipal,
		c.CNAEDescricao,
		c.CNAESecundario,
		c.CNAESecundarioDescricao,
		c.Porte,
		c.CapitalSocial,
		c.Situacao,
		c.DataSituacao,
		c.EnderecoFormatado,
		c.Logradouro,
		c.Numero,
		c.Complemento,
		c.Bairro,
		c.Municipio,
		c.UF,
		c.CEP,
		c.Email,
		c.Telefone1,
		c.Telefone2,
	}
}
