package extraction

import (
	"fmt"
	"strings"
)

// Example is a worked normalization example shown to the model.
type Example struct {
	Name string // as printed on the document
	Key  string // catalog key it maps to
}

// Hints customizes the normalization part of a prompt. The zero value uses
// the built-in examples and does not restrict keys.
type Hints struct {
	Examples  []Example
	KnownKeys []string
}

// DefaultInvoiceExamples are used when Hints carries no invoice examples.
var DefaultInvoiceExamples = []Example{
	{Name: "Faina alba 000", Key: "faina"},
	{Name: "Zahar tos", Key: "zahar"},
	{Name: "Lapte 3.5%", Key: "lapte"},
	{Name: "Ulei floarea soarelui", Key: "ulei"},
	{Name: "Cartofi albi", Key: "cartofi"},
	{Name: "Ceapa galbena", Key: "ceapa"},
	{Name: "Rosii cherry", Key: "rosii"},
}

// DefaultReceiptExamples are used when Hints carries no receipt examples.
var DefaultReceiptExamples = []Example{
	{Name: "Chicken Soup", Key: "supa pui"},
	{Name: "Pasta Carbonara", Key: "carbonara"},
	{Name: "Caesar Salad", Key: "salata caesar"},
	{Name: "Burger Classic", Key: "burger"},
	{Name: "Beef Burger XXL", Key: "burger"},
}

const invoiceRules = `Analyze the following invoice text and extract:

1. Supplier/Vendor name
2. Invoice date
3. Total amount
4. All line items, in the order they appear

For EACH line item, extract:
- itemName: the exact product name as written on the invoice
- ingredientKey: the INTERNAL ingredient identifier used in stock management
- quantity: a positive number
- unit: one of kg, g, l, ml, pcs
- unitPrice and totalPrice when printed

Rules for ingredientKey (CRITICAL):
- lowercase
- singular
- base ingredient term only, in the inventory language (Romanian)
- remove brand names, percentages and packaging descriptors
- never invent a new ingredient when an existing one matches
`

const receiptRules = `Analyze the following restaurant receipt text.

Extract ONLY SOLD FOOD ITEMS, in the order they appear.
Leave out entirely:
- drinks
- tips
- taxes
- service charges

For EACH food item, extract:
- itemName: the exact name as printed on the receipt
- recipeKey: the INTERNAL recipe identifier
- quantity: number of servings sold, a positive number
- unitPrice and totalPrice when printed

Rules for recipeKey (CRITICAL):
- lowercase
- singular
- menu-internal naming (Romanian)
- remove marketing words (classic, special, house, etc.)
- remove cooking style words (grilled, fried, etc.)
- remove size words (large, small, XXL, etc.)
- never invent a recipe identifier and never keep the receipt marketing name
`

const invoiceShape = `{
  "supplierName": "string or null",
  "invoiceDate": "ISO date string or null",
  "totalAmount": number or null,
  "items": [
    {
      "itemName": "string",
      "ingredientKey": "string",
      "quantity": number,
      "unit": "string",
      "unitPrice": number or null,
      "totalPrice": number or null
    }
  ]
}`

const receiptShape = `{
  "receiptDate": "ISO date string or null",
  "totalAmount": number or null,
  "items": [
    {
      "itemName": "string",
      "recipeKey": "string",
      "quantity": number,
      "unitPrice": number or null,
      "totalPrice": number or null
    }
  ]
}`

const outputRules = `Important:
- Return ONLY the JSON object, no text before or after it
- Do not use markdown code blocks
- Numbers must be JSON numbers, not strings
- Use null for any field you cannot find
- Dates must be ISO 8601 (YYYY-MM-DD)`

// BuildInvoicePrompt builds the extraction instruction for an invoice. The
// output depends only on its arguments.
func BuildInvoicePrompt(text string, hints Hints) string {
	examples := hints.examplesOr(DefaultInvoiceExamples)

	var b strings.Builder
	b.WriteString(invoiceRules)
	writeExamples(&b, examples)
	writeKnownKeys(&b, "ingredientKey", hints.KnownKeys)
	fmt.Fprintf(&b, "\nUnits must be normalized to: %s\n", strings.Join(Units, ", "))
	writeShape(&b, invoiceShape)
	b.WriteString("\nInvoice Text:\n")
	b.WriteString(text)
	return b.String()
}

// BuildReceiptPrompt builds the extraction instruction for a sales receipt.
// The output depends only on its arguments.
func BuildReceiptPrompt(text string, hints Hints) string {
	examples := hints.examplesOr(DefaultReceiptExamples)

	var b strings.Builder
	b.WriteString(receiptRules)
	writeExamples(&b, examples)
	writeKnownKeys(&b, "recipeKey", hints.KnownKeys)
	writeShape(&b, receiptShape)
	b.WriteString("\nReceipt Text:\n")
	b.WriteString(text)
	return b.String()
}

// examplesOr returns the hint examples, or the defaults whose keys are allowed
// by KnownKeys when there are none.
func (h Hints) examplesOr(defaults []Example) []Example {
	if len(h.Examples) > 0 {
		return h.Examples
	}
	if len(h.KnownKeys) == 0 {
		return defaults
	}

	known := make(map[string]bool, len(h.KnownKeys))
	for _, key := range h.KnownKeys {
		known[NormalizeKey(key)] = true
	}
	var allowed []Example
	for _, ex := range defaults {
		if known[ex.Key] {
			allowed = append(allowed, ex)
		}
	}
	return allowed
}

func writeExamples(b *strings.Builder, examples []Example) {
	if len(examples) == 0 {
		return
	}
	b.WriteString("\nExamples:\n")
	for _, ex := range examples {
		fmt.Fprintf(b, "- %q -> %q\n", ex.Name, ex.Key)
	}
}

func writeKnownKeys(b *strings.Builder, field string, keys []string) {
	if len(keys) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s MUST be one of: %s\n", field, strings.Join(keys, ", "))
}

func writeShape(b *strings.Builder, shape string) {
	b.WriteString("\nReturn STRICT JSON in exactly this format:\n\n")
	b.WriteString(shape)
	b.WriteString("\n\n")
	b.WriteString(outputRules)
	b.WriteString("\n")
}
