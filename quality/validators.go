package quality

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// CNPJLength tamanho canônico de um CNPJ sem máscara
const CNPJLength = 14

var (
	// scientificNotation reconhece números que a planilha converteu para notação científica (ex: 1.1222333000181E+13)
	scientificNotation = regexp.MustCompile(`^\d+(?:\.\d+)?[eE]\+\d+$`)
	nonDigits          = regexp.MustCompile(`\D`)
)

// OnlyDigits remove tudo que não for dígito
func OnlyDigits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// NormalizeCNPJ converte o conteúdo bruto de uma célula em um CNPJ canônico de 14 dígitos.
// Valores em notação científica são reinterpretados como inteiro; falha de parse mantém o
// texto original. Nunca retorna erro: entrada malformada vira um CNPJ que a validação rejeita.
func NormalizeCNPJ(raw string) string {
	s := strings.TrimSpace(raw)

	if scientificNotation.MatchString(s) {
		// Valores acima de int64 ficam como estão; a validação rejeita depois
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < math.MaxInt64 {
			s = strconv.FormatInt(int64(f), 10)
		}
	}

	s = OnlyDigits(s)

	// Preenche com zeros à esquerda; mais de 14 dígitos passam adiante sem truncar
	if len(s) < CNPJLength {
		s = strings.Repeat("0", CNPJLength-len(s)) + s
	}
	return s
}

// ValidateCNPJ valida um CNPJ com verificação dos dois dígitos verificadores
func ValidateCNPJ(cnpj string) bool {
	cleaned := OnlyDigits(cnpj)

	// Comprimento e sequências repetidas (00000000000000, 11111111111111, ...)
	if len(cleaned) != CNPJLength {
		return false
	}
	if strings.Count(cleaned, string(cleaned[0])) == CNPJLength {
		return false
	}

	weights1 := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	weights2 := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

	d1 := checkDigit(cleaned[:12], weights1)
	d2 := checkDigit(cleaned[:12]+d1, weights2)

	return cleaned[12:] == d1+d2
}

// checkDigit calcula um dígito verificador: soma ponderada módulo 11
func checkDigit(digits string, weights []int) string {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}

	r := sum % 11
	if r < 2 {
		return "0"
	}
	return strconv.Itoa(11 - r)
}
