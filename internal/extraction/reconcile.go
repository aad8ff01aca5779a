package extraction

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// reconcileTolerance absorbs rounding on printed documents.
var reconcileTolerance = decimal.New(1, -2)

func reconcileInvoice(d InvoiceData) []string {
	var warnings []string
	sum := decimal.Zero
	complete := len(d.Items) > 0

	for i, item := range d.Items {
		path := fmt.Sprintf("items[%d]", i)
		if w := reconcileLine(path, item.Quantity, item.UnitPrice, item.TotalPrice); w != "" {
			warnings = append(warnings, w)
		}
		if item.TotalPrice == nil {
			complete = false
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(*item.TotalPrice))
	}

	// Only compare when every line carries a total, otherwise the sum is partial.
	if complete && d.TotalAmount != nil {
		total := decimal.NewFromFloat(*d.TotalAmount).Round(2)
		sum = sum.Round(2)
		if sum.Sub(total).Abs().GreaterThan(reconcileTolerance) {
			warnings = append(warnings, fmt.Sprintf("items add up to %s but totalAmount = %s",
				sum.StringFixed(2), total.StringFixed(2)))
		}
	}

	return warnings
}

// Receipt totals include drinks, tips and taxes that are left out of the
// items, so only individual lines are reconciled.
func reconcileReceipt(d ReceiptData) []string {
	var warnings []string
	for i, item := range d.Items {
		path := fmt.Sprintf("items[%d]", i)
		if w := reconcileLine(path, item.Quantity, item.UnitPrice, item.TotalPrice); w != "" {
			warnings = append(warnings, w)
		}
	}
	return warnings
}

func reconcileLine(path string, quantity float64, unitPrice, totalPrice *float64) string {
	if unitPrice == nil || totalPrice == nil {
		return ""
	}

	expected := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(*unitPrice)).Round(2)
	actual := decimal.NewFromFloat(*totalPrice).Round(2)
	if expected.Sub(actual).Abs().GreaterThan(reconcileTolerance) {
		return fmt.Sprintf("%s: quantity x unitPrice = %s but totalPrice = %s",
			path, expected.StringFixed(2), actual.StringFixed(2))
	}
	return ""
}
