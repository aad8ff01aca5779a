package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/stockx/extractor/internal/catalog"
	"github.com/stockx/extractor/internal/document"
	"github.com/stockx/extractor/internal/extraction"
	"github.com/stockx/extractor/internal/scanning"
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

	// A missing .env is fine; real environment variables still apply.
	godotenv.Load()

	fs := ff.NewFlagSet("stockx-server")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "stockx.db", "Database file path")
		storagePath = fs.StringLong("storage", "./documents", "Storage directory for uploaded files")
		provider    = fs.StringLong("provider", "gemini", "Model provider: 'gemini', 'ollama' or 'openai'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (a vision model is needed for images)")
		openaiKey   = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiURL   = fs.StringLong("openai-url", "https://api.openai.com/v1", "OpenAI-compatible API base URL")
		openaiModel = fs.StringLong("openai-model", "gpt-4o", "OpenAI model name")
		timeout     = fs.DurationLong("timeout", 2*time.Minute, "Timeout for a single model call")
		catalogPath = fs.StringLong("catalog", "", "Catalog YAML file (default: built-in catalog)")
		finderName  = fs.StringLong("finder", "first-last", "JSON candidate finder: 'first-last' or 'balanced'")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("STOCKX"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cat, err := loadCatalog(*catalogPath)
	if err != nil {
		slog.Error("Failed to load catalog", "path", *catalogPath, "error", err)
		os.Exit(1)
	}

	finder, err := extraction.FinderByName(*finderName)
	if err != nil {
		slog.Error("Invalid finder", "error", err)
		os.Exit(1)
	}

	slog.Info("Initializing database...")
	db, err := document.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing model backend...", "provider", *provider)
	backend, err := scanning.NewBackend(scanning.Config{
		Provider:    *provider,
		GeminiKey:   envFallback(*geminiKey, "GEMINI_API_KEY"),
		GeminiModel: *geminiModel,
		OllamaURL:   *ollamaURL,
		OllamaModel: *ollamaModel,
		OpenAIKey:   envFallback(*openaiKey, "OPENAI_API_KEY"),
		OpenAIURL:   *openaiURL,
		OpenAIModel: *openaiModel,
		Timeout:     *timeout,
	})
	if err != nil {
		slog.Error("Failed to initialize model backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	slog.Info("Initializing storage...")
	store, err := document.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	extractor := extraction.NewExtractor(backend, extraction.Config{
		InvoiceHints: cat.InvoiceHints(),
		ReceiptHints: cat.ReceiptHints(),
		Finder:       finder,
	})
	service := document.NewService(db, store, scanning.NewDocumentReader(backend), extractor, cat)

	basicAuth := document.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := document.NewServer(service, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// envFallback returns value, or the named environment variable when value is empty
func envFallback(value, name string) string {
	if value != "" {
		return value
	}
	return os.Getenv(name)
}
