package document

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stockx/extractor/internal/extraction"
)

// ErrUnknownKind is returned for a document kind other than invoices or receipts.
var ErrUnknownKind = errors.New("unknown document kind")

// Kind is the type of document. Its value doubles as the URL segment and bucket name.
type Kind string

const (
	KindInvoice Kind = "invoices"
	KindReceipt Kind = "receipts"
)

// Kinds lists every supported document kind.
var Kinds = []Kind{KindInvoice, KindReceipt}

// ParseKind accepts singular and plural kind names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "invoice", "invoices":
		return KindInvoice, nil
	case "receipt", "receipts":
		return KindReceipt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Status is where a record is in processing.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record is an uploaded document together with what was extracted from it
type Record struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Status      Status `json:"status"`

	// Reason and Error are set when Status is failed.
	Reason extraction.Reason `json:"reason,omitempty"`
	Error  string            `json:"error,omitempty"`

	// Exactly one of Invoice and Receipt is set once extraction has run.
	Invoice *extraction.InvoiceData `json:"invoice,omitempty"`
	Receipt *extraction.ReceiptData `json:"receipt,omitempty"`

	UnknownKeys []string `json:"unknown_keys,omitempty"` // keys missing from the catalog
	Warnings    []string `json:"warnings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
