package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"cnpjserver/database"
	"cnpjserver/enrichment"
	"cnpjserver/exporter"
	"cnpjserver/importer"
	"cnpjserver/internal/config"
	"cnpjserver/registry"
	"cnpjserver/server"
)

func main() {
	var (
		inPath  = flag.String("in", "", "planilha de entrada (.xlsx/.xls/.csv)")
		outPath = flag.String("out", "resultado_cnaes.xlsx", "arquivo de saída (.xlsx/.csv)")
		sheet   = flag.String("sheet", "", "aba da planilha (vazio = primeira aba)")
		column  = flag.String("column", "", "coluna com os CNPJs (vazio = valor da config)")
	)
	flag.Parse()

	if *inPath == "" {
		log.Fatal("uso: enrich_file -in planilha.xlsx [-out resultado_cnaes.xlsx] [-sheet Aba] [-column CNPJ]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Erro na configuração: %v", err)
	}
	server.ConfigureLogger(cfg.LogLevel)

	if *column == "" {
		*column = cfg.CNPJColumn
	}

	table, err := importer.ReadFile(*inPath, *sheet)
	if err != nil {
		log.Fatalf("Erro ao ler a planilha: %v", err)
	}

	client := registry.NewClient(cfg.RegistryConfig())
	pipeline := enrichment.NewPipeline(client, cfg.ThrottleDelay)

	start := time.Now()
	out, summary, err := pipeline.Enrich(table, *column)
	if err != nil {
		log.Fatalf("Erro no enriquecimento: %v", err)
	}

	if err := exporter.WriteFile(out, *outPath); err != nil {
		log.Fatalf("Erro ao gravar o resultado: %v", err)
	}

	recordRun(cfg, *inPath, summary, time.Since(start))

	fmt.Printf("Consulta concluída! Arquivo '%s' gerado.\n", *outPath)
	fmt.Printf("Resumo -> Sucesso: %d | Inválidos: %d | Erros/Não encontrados: %d\n",
		summary.Success, summary.Invalid, summary.Errors)
}

// recordRun registra a execução no histórico; sem banco acessível só avisa
func recordRun(cfg *config.Config, fileName string, summary *enrichment.Summary, elapsed time.Duration) {
	runs, err := database.OpenRunsDB(cfg.RunsDatabasePath)
	if err != nil {
		log.Printf("Aviso: histórico indisponível (%v)", err)
		return
	}
	defer runs.Close()

	rec := &database.RunRecord{
		FileName:   fileName,
		Rows:       summary.Rows,
		Unique:     summary.Unique,
		Success:    summary.Success,
		Invalid:    summary.Invalid,
		Errors:     summary.Errors,
		DurationMS: elapsed.Milliseconds(),
	}
	if err := runs.SaveRun(rec); err != nil {
		log.Printf("Aviso: falha ao registrar a execução (%v)", err)
	}
}
