package document

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stockx/extractor/internal/extraction"
)

// TextReader turns an uploaded file into plain text
type TextReader interface {
	ReadText(ctx context.Context, data []byte, contentType string) (string, error)
}

// Extractor turns document text into structured data
type Extractor interface {
	ExtractInvoice(ctx context.Context, text string) extraction.Result[extraction.InvoiceData]
	ExtractReceipt(ctx context.Context, text string) extraction.Result[extraction.ReceiptData]
}

// KeyChecker reports extracted keys the inventory does not know about
type KeyChecker interface {
	UnknownIngredients(data extraction.InvoiceData) []string
	UnknownRecipes(data extraction.ReceiptData) []string
}

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now().UTC()
}

// Service handles document operations
type Service struct {
	db          DB
	storage     Storage
	reader      TextReader
	extractor   Extractor
	keys        KeyChecker
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID record IDs and the wall clock.
// keys may be nil to skip unknown key reporting.
func NewService(db DB, storage Storage, reader TextReader, extractor Extractor, keys KeyChecker) *Service {
	return NewServiceWithDeps(db, storage, reader, extractor, keys, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, reader TextReader, extractor Extractor, keys KeyChecker, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		reader:      reader,
		extractor:   extractor,
		keys:        keys,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename removes special characters and truncates long phone-generated names
func sanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(filename))
	if unsafeFilenameChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "document"
	}

	return base + ext
}

// Process stores an uploaded document, reads its text and extracts it.
// A document that cannot be read or extracted is kept as a failed record;
// an error is returned only when the record itself cannot be stored.
func (s *Service) Process(ctx context.Context, kind Kind, filename string, data []byte, contentType string) (*Record, error) {
	kind, err := ParseKind(string(kind))
	if err != nil {
		return nil, err
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	record := &Record{
		ID:          id,
		Kind:        kind,
		Filename:    savedPath,
		ContentType: contentType,
		Status:      StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.Save(record); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving record to database: %w", err)
	}

	text, err := s.reader.ReadText(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to read document",
			"id", id,
			"kind", kind,
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		record.Status = StatusFailed
		record.Error = err.Error()
	} else {
		s.extract(ctx, record, text)
	}

	record.UpdatedAt = s.timeSource.Now()
	if err := s.db.Save(record); err != nil {
		return nil, fmt.Errorf("saving record to database: %w", err)
	}

	return record, nil
}

// Extract runs extraction on already-read text without storing anything
func (s *Service) Extract(ctx context.Context, kind Kind, text string) (*Record, error) {
	kind, err := ParseKind(string(kind))
	if err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	record := &Record{
		Kind:      kind,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.extract(ctx, record, text)
	return record, nil
}

func (s *Service) extract(ctx context.Context, record *Record, text string) {
	var (
		reason   extraction.Reason
		err      error
		warnings []string
	)

	switch record.Kind {
	case KindInvoice:
		res := s.extractor.ExtractInvoice(ctx, text)
		record.Invoice = &res.Data
		reason, err, warnings = res.Reason, res.Err, res.Warnings
		if res.OK() && s.keys != nil {
			record.UnknownKeys = s.keys.UnknownIngredients(res.Data)
		}
	case KindReceipt:
		res := s.extractor.ExtractReceipt(ctx, text)
		record.Receipt = &res.Data
		reason, err, warnings = res.Reason, res.Err, res.Warnings
		if res.OK() && s.keys != nil {
			record.UnknownKeys = s.keys.UnknownRecipes(res.Data)
		}
	}

	record.Warnings = warnings
	record.Reason = reason
	if reason != extraction.ReasonNone {
		record.Status = StatusFailed
		if err != nil {
			record.Error = err.Error()
		}
		return
	}
	record.Status = StatusCompleted

	if len(record.UnknownKeys) > 0 {
		slog.Warn("Extracted keys missing from catalog",
			"id", record.ID,
			"kind", record.Kind,
			"keys", record.UnknownKeys,
		)
	}
}

// Get retrieves a record by ID
func (s *Service) Get(kind Kind, id string) (*Record, error) {
	record, err := s.db.Get(kind, id)
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return record, nil
}

// List returns all records of a kind
func (s *Service) List(kind Kind) ([]*Record, error) {
	records, err := s.db.List(kind)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return records, nil
}

// Delete removes a record and its file
func (s *Service) Delete(kind Kind, id string) error {
	record, err := s.db.Get(kind, id)
	if err != nil {
		return fmt.Errorf("getting record for deletion: %w", err)
	}

	if err := s.storage.Delete(record.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", record.Filename, "error", err)
	}

	if err := s.db.Delete(kind, id); err != nil {
		return fmt.Errorf("deleting record from database: %w", err)
	}
	return nil
}

// GetFile retrieves the original upload of a record and its content type
func (s *Service) GetFile(kind Kind, id string) ([]byte, string, error) {
	record, err := s.db.Get(kind, id)
	if err != nil {
		return nil, "", fmt.Errorf("getting record: %w", err)
	}

	data, err := s.storage.Get(record.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting record file: %w", err)
	}

	return data, record.ContentType, nil
}
