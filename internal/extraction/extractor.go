package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Generator sends a prompt to a text-generation backend and returns its raw
// output. Implementations must honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds optional Extractor settings.
type Config struct {
	InvoiceHints Hints
	ReceiptHints Hints
	Finder       CandidateFinder // defaults to FirstLastCandidate
	Logger       *slog.Logger    // defaults to slog.Default()
}

// Extractor runs the prompt -> generate -> extract -> validate pipeline.
// It holds no per-call state and is safe for concurrent use when its
// Generator is.
type Extractor struct {
	generator Generator
	cfg       Config
	log       *slog.Logger
}

// NewExtractor creates a new Extractor
func NewExtractor(generator Generator, cfg Config) *Extractor {
	if cfg.Finder == nil {
		cfg.Finder = FirstLastCandidate
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		generator: generator,
		cfg:       cfg,
		log:       logger,
	}
}

// ExtractInvoice extracts invoice data from raw document text. It always
// returns a structurally valid result; failures are reported in Reason.
func (e *Extractor) ExtractInvoice(ctx context.Context, text string) Result[InvoiceData] {
	rid := uuid.NewString()
	start := time.Now()

	output, err := e.generate(ctx, BuildInvoicePrompt(text, e.cfg.InvoiceHints))
	if err != nil {
		e.logFailure("invoice", rid, start, ReasonInvocationFailed, err)
		return Result[InvoiceData]{Data: EmptyInvoice(), Reason: ReasonInvocationFailed, Err: err}
	}

	result := ParseInvoice(output, e.cfg.Finder)
	if !result.OK() {
		e.logFailure("invoice", rid, start, result.Reason, result.Err, "output_len", len(output))
		return result
	}

	e.logSuccess("invoice", rid, start, len(result.Data.Items), result.Warnings)
	return result
}

// ExtractReceipt extracts sold food items from raw receipt text. It always
// returns a structurally valid result; failures are reported in Reason.
func (e *Extractor) ExtractReceipt(ctx context.Context, text string) Result[ReceiptData] {
	rid := uuid.NewString()
	start := time.Now()

	output, err := e.generate(ctx, BuildReceiptPrompt(text, e.cfg.ReceiptHints))
	if err != nil {
		e.logFailure("receipt", rid, start, ReasonInvocationFailed, err)
		return Result[ReceiptData]{Data: EmptyReceipt(), Reason: ReasonInvocationFailed, Err: err}
	}

	result := ParseReceipt(output, e.cfg.Finder)
	if !result.OK() {
		e.logFailure("receipt", rid, start, result.Reason, result.Err, "output_len", len(output))
		return result
	}

	e.logSuccess("receipt", rid, start, len(result.Data.Items), result.Warnings)
	return result
}

// generate calls the backend and turns a panic into an error.
func (e *Extractor) generate(ctx context.Context, prompt string) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()

	if e.generator == nil {
		return "", fmt.Errorf("no generator configured")
	}
	output, err = e.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	return output, nil
}

func (e *Extractor) logFailure(kind, rid string, start time.Time, reason Reason, err error, extra ...any) {
	args := []any{
		"kind", kind,
		"request_id", rid,
		"reason", string(reason),
		"error", err,
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	e.log.Error("Extraction degraded to empty result", append(args, extra...)...)
}

func (e *Extractor) logSuccess(kind, rid string, start time.Time, items int, warnings []string) {
	e.log.Info("Extraction completed",
		"kind", kind,
		"request_id", rid,
		"items", items,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	for _, w := range warnings {
		e.log.Warn("Extraction warning", "kind", kind, "request_id", rid, "warning", w)
	}
}
