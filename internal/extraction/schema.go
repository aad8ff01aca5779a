package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// The schemas only check JSON types and required fields. Value rules (positive
// quantity, non-negative prices, key format) are enforced by validateInvoice
// and validateReceipt so each violation carries an item path.
var (
	invoiceSchemaDoc = buildInvoiceSchema()
	receiptSchemaDoc = buildReceiptSchema()

	invoiceSchema = mustCompileSchema("invoice.json", invoiceSchemaDoc)
	receiptSchema = mustCompileSchema("receipt.json", receiptSchemaDoc)
)

func buildInvoiceSchema() map[string]any {
	item := map[string]any{
		"type":     "object",
		"required": []string{"itemName", "ingredientKey", "quantity"},
		"properties": map[string]any{
			"itemName":      map[string]any{"type": "string"},
			"ingredientKey": map[string]any{"type": "string"},
			"quantity":      map[string]any{"type": "number"},
			"unit":          optional("string"),
			"unitPrice":     optional("number"),
			"totalPrice":    optional("number"),
		},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"supplierName": optional("string"),
			"invoiceDate":  optional("string"),
			"totalAmount":  optional("number"),
			"items":        itemsProp(item),
		},
	}
}

func buildReceiptSchema() map[string]any {
	item := map[string]any{
		"type":     "object",
		"required": []string{"itemName", "recipeKey", "quantity"},
		"properties": map[string]any{
			"itemName":   map[string]any{"type": "string"},
			"recipeKey":  map[string]any{"type": "string"},
			"quantity":   map[string]any{"type": "number"},
			"unitPrice":  optional("number"),
			"totalPrice": optional("number"),
		},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"receiptDate": optional("string"),
			"totalAmount": optional("number"),
			"items":       itemsProp(item),
		},
	}
}

func optional(typ string) map[string]any {
	return map[string]any{"type": []string{typ, "null"}}
}

func itemsProp(item map[string]any) map[string]any {
	return map[string]any{
		"type":  []string{"array", "null"},
		"items": item,
	}
}

// schemaProperties copies v keeping only the object properties schemaDoc
// declares, matched by exact name.
func schemaProperties(v any, schemaDoc map[string]any) any {
	switch v := v.(type) {
	case map[string]any:
		props, ok := schemaDoc["properties"].(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(props))
		for name, sub := range props {
			if value, present := v[name]; present {
				subDoc, _ := sub.(map[string]any)
				out[name] = schemaProperties(value, subDoc)
			}
		}
		return out
	case []any:
		itemDoc, _ := schemaDoc["items"].(map[string]any)
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = schemaProperties(elem, itemDoc)
		}
		return out
	default:
		return v
	}
}

func mustCompileSchema(name string, schemaMap map[string]any) *jsonschema.Schema {
	schema, err := compileSchema(name, schemaMap)
	if err != nil {
		panic(err)
	}
	return schema
}

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
