package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/trukkerweeler/invcclss/internal/document"
	"github.com/trukkerweeler/invcclss/internal/extraction"
	"github.com/trukkerweeler/invcclss/internal/invoice"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Optional .env for API keys and local overrides
	_ = godotenv.Load()

	fs := ff.NewFlagSet("invcclss")
	var (
		scanDir        = fs.StringLong("scan-dir", "./scans", "Directory of scanned invoice files")
		dbPath         = fs.StringLong("db", "invcclss.db", "Database file path")
		patternsPath   = fs.StringLong("patterns", "pattern_mappings.json", "Per-supplier pattern configuration file (location boxes and text labels)")
		batchSize      = fs.IntLong("batch-size", invoice.DefaultBatchSize, "Files to process before pausing for confirmation")
		recognizerType = fs.StringLong("recognizer", "gemini", "Region text recognizer: 'gemini', 'ollama' or 'none'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g., llava, qwen2-vl)")
		autoSkip       = fs.BoolLong("auto-skip", "Skip incomplete records instead of prompting for manual entry")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVCCLSS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	slog.Info("Initializing database...")
	db, err := invoice.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var recognizer document.RecognitionService
	switch *recognizerType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini recognizer...", "model", *geminiModel)
		recognizer, err = document.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", *ollamaURL, "model", *ollamaModel)
		recognizer, err = document.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	case "none":
		slog.Info("No recognizer configured; location tier and scanned-image OCR disabled")
	default:
		slog.Error("Invalid recognizer type", "type", *recognizerType, "valid", "gemini, ollama or none")
		os.Exit(1)
	}
	if recognizer != nil {
		defer recognizer.Close()
	}

	registry := extraction.NewRegistry()
	if err := registry.LoadMappings(*patternsPath); err != nil {
		slog.Error("Failed to load pattern mappings", "path", *patternsPath, "error", err)
		os.Exit(1)
	}

	opener := document.NewOpener(recognizer)
	orchestrator := extraction.NewOrchestrator(opener, registry, extraction.NewLocationExtractor(recognizer))

	var reviewer invoice.Reviewer
	if *autoSkip {
		reviewer = autoSkipReviewer{}
	} else {
		reviewer = newConsoleReviewer(os.Stdin, os.Stdout)
	}

	coordinator := invoice.NewCoordinator(db, orchestrator, reviewer, *scanDir, *batchSize)

	discovered, err := coordinator.Discover()
	if err != nil {
		slog.Error("Failed to scan directory", "dir", *scanDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Scan directory read", "dir", *scanDir, "files", discovered)

	// Coarse cancellation: the run stops between files, never mid-file
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := coordinator.Run(ctx)
	if err != nil {
		slog.Error("Run halted", "error", err,
			"processed", summary.Processed, "complete", summary.Complete,
			"incomplete", summary.Incomplete, "errors", summary.Errored)
		os.Exit(1)
	}

	fmt.Printf("Processed %d files: %d complete, %d incomplete, %d errors\n",
		summary.Processed, summary.Complete, summary.Incomplete, summary.Errored)
}
