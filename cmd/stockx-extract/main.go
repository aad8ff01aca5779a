package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/stockx/extractor/internal/catalog"
	"github.com/stockx/extractor/internal/document"
	"github.com/stockx/extractor/internal/extraction"
	"github.com/stockx/extractor/internal/render"
	"github.com/stockx/extractor/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// errDegraded marks an extraction that fell back to the empty default.
var errDegraded = errors.New("extraction degraded to empty result")

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	godotenv.Load()

	// Logs go to stderr so stdout stays parseable.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	fs := ff.NewFlagSet("stockx-extract")
	var (
		kindName    = fs.StringLong("kind", "receipt", "Document kind: 'invoice' or 'receipt'")
		format      = fs.StringLong("format", "json", "Output format: 'json' or 'table'")
		provider    = fs.StringLong("provider", "gemini", "Model provider: 'gemini', 'ollama' or 'openai'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name")
		openaiKey   = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiURL   = fs.StringLong("openai-url", "https://api.openai.com/v1", "OpenAI-compatible API base URL")
		openaiModel = fs.StringLong("openai-model", "gpt-4o", "OpenAI model name")
		timeout     = fs.DurationLong("timeout", 2*time.Minute, "Timeout for a single model call")
		catalogPath = fs.StringLong("catalog", "", "Catalog YAML file (default: built-in catalog)")
		finderName  = fs.StringLong("finder", "first-last", "JSON candidate finder: 'first-last' or 'balanced'")
		_           = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("STOCKX"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := fs.GetArgs()
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "usage: stockx-extract [flags] [FILE|-]\n")
		os.Exit(1)
	}
	input := "-"
	if len(args) == 1 {
		input = args[0]
	}

	kind, err := document.ParseKind(*kindName)
	if err != nil {
		slog.Error("Invalid kind", "error", err)
		os.Exit(1)
	}
	if *format != "json" && *format != "table" {
		slog.Error("Invalid format", "format", *format, "valid", "json or table")
		os.Exit(1)
	}

	cat := catalog.Default()
	if *catalogPath != "" {
		if cat, err = catalog.Load(*catalogPath); err != nil {
			slog.Error("Failed to load catalog", "path", *catalogPath, "error", err)
			os.Exit(1)
		}
	}

	finder, err := extraction.FinderByName(*finderName)
	if err != nil {
		slog.Error("Invalid finder", "error", err)
		os.Exit(1)
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	data, contentType, err := readInput(input, os.Stdin)
	if err != nil {
		slog.Error("Failed to read input", "input", input, "error", err)
		os.Exit(1)
	}

	text, err := scanning.NewDocumentReader(backend).ReadText(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to read document", "input", input, "error", err)
		os.Exit(1)
	}

	extractor := extraction.NewExtractor(backend, extraction.Config{
		InvoiceHints: cat.InvoiceHints(),
		ReceiptHints: cat.ReceiptHints(),
		Finder:       finder,
	})

	if err := run(ctx, os.Stdout, extractor, cat, kind, *format, text); err != nil {
		slog.Error("Extraction failed", "error", err)
		os.Exit(2)
	}
}

// run extracts text and writes the result. The empty default is still written
// when extraction degrades; errDegraded is returned in that case.
func run(ctx context.Context, w io.Writer, extractor *extraction.Extractor, cat *catalog.Catalog, kind document.Kind, format, text string) error {
	var (
		out     any
		unknown []string
		ok      bool
		table   func() error
	)

	switch kind {
	case document.KindInvoice:
		res := extractor.ExtractInvoice(ctx, text)
		out, ok = res.Data, res.OK()
		unknown = cat.UnknownIngredients(res.Data)
		table = func() error { return render.Invoice(w, res.Data) }
	default:
		res := extractor.ExtractReceipt(ctx, text)
		out, ok = res.Data, res.OK()
		unknown = cat.UnknownRecipes(res.Data)
		table = func() error { return render.Receipt(w, res.Data) }
	}

	if len(unknown) > 0 {
		slog.Warn("Extracted keys missing from catalog", "keys", unknown)
	}

	var err error
	if format == "table" {
		err = table()
	} else {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(out)
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if !ok {
		return errDegraded
	}
	return nil
}

// readInput reads a file, or stdin for "-", and guesses its content type.
// An empty content type leaves detection to the document reader.
func readInput(path string, stdin io.Reader) ([]byte, string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return data, "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading file: %w", err)
	}
	return data, mime.TypeByExtension(strings.ToLower(filepath.Ext(path))), nil
}

func envFallback(value, name string) string {
	if value != "" {
		return value
	}
	return os.Getenv(name)
}
