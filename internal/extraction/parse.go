package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrNoCandidate         = errors.New("no JSON object found in output")
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
	ErrNegativePrice       = errors.New("price must not be negative")
	ErrEmptyKey            = errors.New("catalog key is empty")
)

// dateLayouts are rewritten to YYYY-MM-DD. Day comes before month in every
// non-ISO layout.
var dateLayouts = []string{
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
}

// isoLayouts are already ISO 8601 and kept verbatim.
var isoLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01",
	"2006",
}

// ParseInvoice turns raw model output into a validated InvoiceData. It never
// fails: on any problem the result holds EmptyInvoice and the reason.
func ParseInvoice(output string, find CandidateFinder) Result[InvoiceData] {
	data, reason, err := decodeCandidate[InvoiceData](output, find, invoiceSchema, invoiceSchemaDoc)
	if err != nil {
		return Result[InvoiceData]{Data: EmptyInvoice(), Reason: reason, Err: err}
	}

	warnings, err := validateInvoice(&data)
	if err != nil {
		return Result[InvoiceData]{Data: EmptyInvoice(), Reason: ReasonSchemaViolation, Err: err}
	}

	return Result[InvoiceData]{Data: data, Warnings: append(warnings, reconcileInvoice(data)...)}
}

// ParseReceipt turns raw model output into a validated ReceiptData. It never
// fails: on any problem the result holds EmptyReceipt and the reason.
func ParseReceipt(output string, find CandidateFinder) Result[ReceiptData] {
	data, reason, err := decodeCandidate[ReceiptData](output, find, receiptSchema, receiptSchemaDoc)
	if err != nil {
		return Result[ReceiptData]{Data: EmptyReceipt(), Reason: reason, Err: err}
	}

	warnings, err := validateReceipt(&data)
	if err != nil {
		return Result[ReceiptData]{Data: EmptyReceipt(), Reason: ReasonSchemaViolation, Err: err}
	}

	return Result[ReceiptData]{Data: data, Warnings: append(warnings, reconcileReceipt(data)...)}
}

func decodeCandidate[T any](output string, find CandidateFinder, schema *jsonschema.Schema, schemaDoc map[string]any) (T, Reason, error) {
	var data T
	if find == nil {
		find = FirstLastCandidate
	}

	candidate, ok := find(output)
	if !ok {
		return data, ReasonNoCandidate, ErrNoCandidate
	}

	var raw any
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return data, ReasonMalformedJSON, fmt.Errorf("unmarshaling json: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return data, ReasonSchemaViolation, fmt.Errorf("json does not match schema: %w", err)
	}
	// The typed decode matches field names case-insensitively, so it only sees
	// the properties the schema checked.
	checked, err := json.Marshal(schemaProperties(raw, schemaDoc))
	if err != nil {
		return data, ReasonMalformedJSON, fmt.Errorf("marshaling checked document: %w", err)
	}
	if err := json.Unmarshal(checked, &data); err != nil {
		return data, ReasonSchemaViolation, fmt.Errorf("decoding document: %w", err)
	}

	return data, ReasonNone, nil
}

func validateInvoice(d *InvoiceData) ([]string, error) {
	var warnings []string

	if d.Items == nil {
		d.Items = []InvoiceLineItem{}
	}
	d.SupplierName = trimmedOrNil(d.SupplierName)

	var warning string
	if d.InvoiceDate, warning = normalizeDate("invoiceDate", d.InvoiceDate); warning != "" {
		warnings = append(warnings, warning)
	}

	for i := range d.Items {
		item := &d.Items[i]
		path := fmt.Sprintf("items[%d]", i)

		item.IngredientKey = NormalizeKey(item.IngredientKey)
		if item.IngredientKey == "" {
			return warnings, fmt.Errorf("%w: %s.ingredientKey", ErrEmptyKey, path)
		}
		if err := checkLine(path, item.Quantity, item.UnitPrice, item.TotalPrice); err != nil {
			return warnings, err
		}

		if item.Unit != nil {
			unit, known := NormalizeUnit(*item.Unit)
			switch {
			case unit == "":
				item.Unit = nil
			case !known:
				item.Unit = &unit
				warnings = append(warnings, fmt.Sprintf("%s.unit %q is not one of %s", path, unit, strings.Join(Units, ", ")))
			default:
				item.Unit = &unit
			}
		}
	}

	return warnings, nil
}

func validateReceipt(d *ReceiptData) ([]string, error) {
	var warnings []string

	if d.Items == nil {
		d.Items = []ReceiptLineItem{}
	}

	var warning string
	if d.ReceiptDate, warning = normalizeDate("receiptDate", d.ReceiptDate); warning != "" {
		warnings = append(warnings, warning)
	}

	for i := range d.Items {
		item := &d.Items[i]
		path := fmt.Sprintf("items[%d]", i)

		item.RecipeKey = NormalizeKey(item.RecipeKey)
		if item.RecipeKey == "" {
			return warnings, fmt.Errorf("%w: %s.recipeKey", ErrEmptyKey, path)
		}
		if err := checkLine(path, item.Quantity, item.UnitPrice, item.TotalPrice); err != nil {
			return warnings, err
		}
	}

	return warnings, nil
}

func checkLine(path string, quantity float64, unitPrice, totalPrice *float64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %s.quantity = %v", ErrNonPositiveQuantity, path, quantity)
	}
	if unitPrice != nil && *unitPrice < 0 {
		return fmt.Errorf("%w: %s.unitPrice = %v", ErrNegativePrice, path, *unitPrice)
	}
	if totalPrice != nil && *totalPrice < 0 {
		return fmt.Errorf("%w: %s.totalPrice = %v", ErrNegativePrice, path, *totalPrice)
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// normalizeDate keeps ISO 8601 dates as they are, rewrites a few common
// layouts to YYYY-MM-DD and drops anything else.
func normalizeDate(field string, date *string) (*string, string) {
	s := trimmedOrNil(date)
	if s == nil {
		return nil, ""
	}

	for _, layout := range isoLayouts {
		if _, err := time.Parse(layout, *s); err == nil {
			return s, ""
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			formatted := t.Format(time.DateOnly)
			return &formatted, ""
		}
	}

	return nil, fmt.Sprintf("%s %q is not a recognizable date, dropped", field, *s)
}
