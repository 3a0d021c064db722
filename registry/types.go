package registry

import (
	"encoding/json"
	"strings"
)

// LookupStatus classifica o desfecho de uma consulta ao registro
type LookupStatus int

const (
	StatusSuccess LookupStatus = iota // Dados cadastrais obtidos
	StatusNotFound                    // HTTP 404, sem retry
	StatusRetriesExhausted            // HTTP 429/5xx após esgotar o orçamento de retries
	StatusNetworkError                // Falha de transporte após esgotar o orçamento de retries
	StatusPermanentError              // Demais status HTTP ou corpo inválido, sem retry
	StatusInvalidChecksum             // CNPJ rejeitado pelo dígito verificador, sem chamada de rede
)

// String retorna o identificador do status para logs e respostas JSON
func (s LookupStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not_found"
	case StatusRetriesExhausted:
		return "retries_exhausted"
	case StatusNetworkError:
		return "network_error"
	case StatusPermanentError:
		return "permanent_error"
	case StatusInvalidChecksum:
		return "invalid_checksum"
	default:
		return "unknown"
	}
}

// MarshalJSON serializa o status como string
func (s LookupStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CompanyRecord campos cadastrais extraídos da resposta da BrasilAPI.
// Todo campo é string e fica vazio quando o provedor não informa o dado.
type CompanyRecord struct {
	RazaoSocial             string `json:"razao_social"`
	NomeFantasia            string `json:"nome_fantasia"`
	CNAEPrincipal           string `json:"cnae_principal"`
	CNAEDescricao           string `json:"cnae_descricao"`
	CNAESecundario          string `json:"cnae_secundario"`
	CNAESecundarioDescricao string `json:"cnae_secundario_descricao"`
	Porte                   string `json:"porte"`
	CapitalSocial           string `json:"capital_social"`
	Situacao                string `json:"situacao_cadastral"`
	DataSituacao            string `json:"data_situacao_cadastral"`
	Logradouro              string `json:"logradouro"`
	Numero                  string `json:"numero"`
	Complemento             string `json:"complemento"`
	Bairro                  string `json:"bairro"`
	Municipio               string `json:"municipio"`
	UF                      string `json:"uf"`
	CEP                     string `json:"cep"`
	EnderecoFormatado       string `json:"endereco_formatado"`
	Email                   string `json:"email"`
	Telefone1               string `json:"telefone_1"`
	Telefone2               string `json:"telefone_2"`
}

// LookupResult resultado de uma consulta; todo desfecho, bom ou ruim, vira um LookupResult
type LookupResult struct {
	CNPJ    string        `json:"cnpj"`
	Status  LookupStatus  `json:"status"`
	Message string        `json:"message,omitempty"`
	Company CompanyRecord `json:"company"`
}

// Failed indica que a consulta terminou em erro ou não encontrado
func (r *LookupResult) Failed() bool {
	return r.Status != StatusSuccess && r.Status != StatusInvalidChecksum
}

// DisplayName mapeia o resultado para a convenção legada da coluna "Razão Social":
// nome da empresa no sucesso, string descritiva com prefixo nos demais casos
func (r *LookupResult) DisplayName() string {
	switch r.Status {
	case StatusSuccess:
		return r.Company.RazaoSocial
	case StatusNotFound:
		return "Não encontrado: " + r.Message
	case StatusRetriesExhausted:
		return "Erro após retries: " + r.Message
	case StatusNetworkError:
		return "Erro de rede: " + r.Message
	case StatusInvalidChecksum:
		return "CNPJ inválido (DV)"
	default:
		return "Erro: " + r.Message
	}
}

// jsonScalar aceita número, string ou null do provedor, preservando o texto
// original. A BrasilAPI alterna a forma desses campos conforme a versão, e um
// valor fora do padrão (CEP com hífen, por exemplo) não pode derrubar o parse.
type jsonScalar string

func (s *jsonScalar) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = jsonScalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = jsonScalar(num.String())
	return nil
}

func (s jsonScalar) String() string { return string(s) }

// brasilAPIResponse corpo de resposta da BrasilAPI
type brasilAPIResponse struct {
	RazaoSocial         string          `json:"razao_social"`
	NomeFantasia        string          `json:"nome_fantasia"`
	CNAEFiscal          jsonScalar      `json:"cnae_fiscal"`
	CNAEFiscalDescricao string          `json:"cnae_fiscal_descricao"`
	CNAEsSecundarios    []secondaryCNAE `json:"cnaes_secundarios"`
	Porte               string          `json:"porte"`
	CapitalSocial       jsonScalar      `json:"capital_social"`
	// O campo de situação cadastral varia de nome entre versões do provedor;
	// a descrição tem prioridade sobre o código
	DescricaoSituacao string     `json:"descricao_situacao_cadastral"`
	Situacao          jsonScalar `json:"situacao_cadastral"`
	DataSituacao      string     `json:"data_situacao_cadastral"`
	Logradouro        string     `json:"logradouro"`
	Numero            string     `json:"numero"`
	Complemento       string     `json:"complemento"`
	Bairro            string     `json:"bairro"`
	Municipio         string     `json:"municipio"`
	UF                string     `json:"uf"`
	CEP               jsonScalar `json:"cep"`
	Email             string     `json:"email"`
	Telefone1         string     `json:"ddd_telefone_1"`
	Telefone2         string     `json:"ddd_telefone_2"`
	Message           string     `json:"message"`
}

type secondaryCNAE struct {
	Codigo    jsonScalar `json:"codigo"`
	Descricao string     `json:"descricao"`
}

// toCompanyRecord converte a resposta do provedor nos campos de interesse
func (b *brasilAPIResponse) toCompanyRecord() CompanyRecord {
	rec := CompanyRecord{
		RazaoSocial:   b.RazaoSocial,
		NomeFantasia:  b.NomeFantasia,
		CNAEPrincipal: b.CNAEFiscal.String(),
		CNAEDescricao: b.CNAEFiscalDescricao,
		Porte:         b.Porte,
		CapitalSocial: b.CapitalSocial.String(),
		Situacao:      b.DescricaoSituacao,
		DataSituacao:  b.DataSituacao,
		Logradouro:    b.Logradouro,
		Numero:        b.Numero,
		Complemento:   b.Complemento,
		Bairro:        b.Bairro,
		Municipio:     b.Municipio,
		UF:            b.UF,
		CEP:           b.CEP.String(),
		Email:         b.Email,
		Telefone1:     b.Telefone1,
		Telefone2:     b.Telefone2,
	}

	if rec.Situacao == "" {
		rec.Situacao = b.Situacao.String()
	}

	// Apenas o primeiro CNAE secundário interessa
	if len(b.CNAEsSecundarios) > 0 {
		rec.CNAESecundario = b.CNAEsSecundarios[0].Codigo.String()
		rec.CNAESecundarioDescricao = b.CNAEsSecundarios[0].Descricao
	}

	rec.EnderecoFormatado = formatAddress(rec)
	return rec
}

// formatAddress monta um endereço legível ignorando componentes vazios
func formatAddress(rec CompanyRecord) string {
	var parts []string
	for _, p := range []string{rec.Logradouro, rec.Numero, rec.Complemento, rec.Bairro} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	var cityState []string
	for _, p := range []string{rec.Municipio, rec.UF} {
		if p != "" {
			cityState = append(cityState, p)
		}
	}
	if len(cityState) > 0 {
		parts = append(parts, strings.Join(cityState, " - "))
	}

	if rec.CEP != "" {
		parts = append(parts, "CEP "+rec.CEP)
	}

	return strings.Join(parts, ", ")
}
