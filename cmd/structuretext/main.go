// Command structuretext reads raw text from a file (or stdin with "-") and
// prints the structured record the model produced. Useful for prompt tuning
// without a database.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/docintelhq/docintel/internal/common"
	"github.com/docintelhq/docintel/internal/llm"
	"github.com/docintelhq/docintel/internal/llm/openai"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "structuretext <text-file|->")
		os.Exit(2)
	}

	var raw []byte
	var err error
	if os.Args[1] == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(os.Args[1])
	}
	if err != nil {
		logger.Error("read input", "error", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	chat := openai.NewClient(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	engine := llm.NewEngine(llm.EngineConfig{
		APIKey:        cfg.LLM.APIKey,
		MaxChars:      cfg.LLM.MaxChars,
		StructureTemp: cfg.LLM.StructureTemp,
		SummaryTemp:   cfg.LLM.SummaryTemp,
	}, chat, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.LLM.Timeout)
	defer cancel()

	start := time.Now()
	rec := engine.StructureText(ctx, string(raw))
	logger.Info("structured", "processing_status", string(rec.ProcessingStatus),
		"elapsed_ms", time.Since(start).Milliseconds())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		logger.Error("encode record", "error", err)
		os.Exit(1)
	}
}
