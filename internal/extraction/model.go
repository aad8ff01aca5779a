package extraction

// InvoiceLineItem is a single purchased product as printed on a supplier invoice.
type InvoiceLineItem struct {
	ItemName      string   `json:"itemName"`      // as printed on the invoice
	IngredientKey string   `json:"ingredientKey"` // normalized catalog key
	Quantity      float64  `json:"quantity"`
	Unit          *string  `json:"unit"` // kg, g, l, ml, pcs
	UnitPrice     *float64 `json:"unitPrice"`
	TotalPrice    *float64 `json:"totalPrice"`
}

// ReceiptLineItem is a single sold menu item as printed on a sales receipt.
type ReceiptLineItem struct {
	ItemName   string   `json:"itemName"`  // as printed on the receipt
	RecipeKey  string   `json:"recipeKey"` // normalized catalog key
	Quantity   float64  `json:"quantity"`
	UnitPrice  *float64 `json:"unitPrice"`
	TotalPrice *float64 `json:"totalPrice"`
}

// InvoiceData contains extracted information from a supplier invoice
type InvoiceData struct {
	SupplierName *string           `json:"supplierName"`
	InvoiceDate  *string           `json:"invoiceDate"` // ISO 8601
	TotalAmount  *float64          `json:"totalAmount"`
	Items        []InvoiceLineItem `json:"items"`
}

// ReceiptData contains extracted information from a sales receipt
type ReceiptData struct {
	ReceiptDate *string           `json:"receiptDate"` // ISO 8601
	TotalAmount *float64          `json:"totalAmount"`
	Items       []ReceiptLineItem `json:"items"`
}

// EmptyInvoice returns the "nothing extracted" invoice.
func EmptyInvoice() InvoiceData {
	return InvoiceData{Items: []InvoiceLineItem{}}
}

// EmptyReceipt returns the "nothing extracted" receipt.
func EmptyReceipt() ReceiptData {
	return ReceiptData{Items: []ReceiptLineItem{}}
}

// IsEmpty reports whether nothing was extracted.
func (d InvoiceData) IsEmpty() bool {
	return len(d.Items) == 0 && d.SupplierName == nil && d.InvoiceDate == nil && d.TotalAmount == nil
}

// IsEmpty reports whether nothing was extracted.
func (d ReceiptData) IsEmpty() bool {
	return len(d.Items) == 0 && d.ReceiptDate == nil && d.TotalAmount == nil
}

// Reason tells why an extraction degraded to the empty default.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonInvocationFailed Reason = "invocation_failed"
	ReasonNoCandidate      Reason = "no_json_found"
	ReasonMalformedJSON    Reason = "malformed_json"
	ReasonSchemaViolation  Reason = "schema_violation"
)

// Result wraps extracted data with the outcome of the extraction.
// Data is always structurally valid: on failure it holds the empty default
// and Reason/Err describe what went wrong.
type Result[T any] struct {
	Data     T
	Reason   Reason
	Err      error
	Warnings []string
}

// OK reports whether the extraction succeeded.
func (r Result[T]) OK() bool {
	return r.Reason == ReasonNone
}
