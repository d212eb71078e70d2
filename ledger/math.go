package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"belegflow-backend/models"
)

// Tolerances in currency units. The receipt-level check is looser because
// vat_amount often comes rounded from the source document.
const (
	receiptTolerance = 0.10
	itemTolerance    = 0.01
)

// Round2 rounds x to 2 decimal places, half away from zero. Applied
// everywhere money is computed so repeated edits cannot compound error.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ParseNumber converts arbitrary input to a float64. Empty, malformed and
// non-finite values degrade to 0; negative values keep their sign.
func ParseNumber(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	case float32:
		return ParseNumber(float64(v))
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}

// ItemTotal returns the rounded line total for a quantity and unit price.
func ItemTotal(quantity, unitPrice float64) float64 {
	return Round2(ParseNumber(quantity) * ParseNumber(unitPrice))
}

// SumLineItems returns the rounded sum of stored line totals. The running
// sum is rounded once at the end; stored totals are already cent values, so
// this agrees with per-addition rounding for receipt magnitudes.
func SumLineItems(items []models.LineItem) float64 {
	var sum float64
	for _, it := range items {
		sum += ParseNumber(it.Total)
	}
	return Round2(sum)
}

// ValidationResult reports consistency violations without mutating or
// "fixing" the receipt; the caller decides whether to block save or warn.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Issues  []string `json:"issues"`
}

// Validate checks that each line total matches quantity×unit_price and that
// subtotal+VAT matches the stored grand total. A receipt without line items
// is valid by definition (nothing to compare against).
func Validate(receipt *models.Receipt) ValidationResult {
	res := ValidationResult{IsValid: true, Issues: []string{}}
	if receipt == nil || len(receipt.Items) == 0 {
		return res
	}

	for i, it := range receipt.Items {
		expected := ItemTotal(it.Quantity, it.UnitPrice)
		if math.Abs(expected-ParseNumber(it.Total)) > itemTolerance {
			res.Issues = append(res.Issues, fmt.Sprintf(
				"line item %d (%s): total %.2f does not match quantity %.2f × unit price %.2f = %.2f",
				i+1, it.Description, it.Total, it.Quantity, it.UnitPrice, expected))
		}
	}

	subtotal := SumLineItems(receipt.Items)
	expectedTotal := Round2(subtotal + ParseNumber(receipt.VatAmount))
	if math.Abs(expectedTotal-ParseNumber(receipt.TotalAmount)) > receiptTolerance {
		res.Issues = append(res.Issues, fmt.Sprintf(
			"total amount %.2f does not match subtotal %.2f + VAT %.2f = %.2f",
			receipt.TotalAmount, subtotal, receipt.VatAmount, expectedTotal))
	}

	res.IsValid = len(res.Issues) == 0
	return res
}

// RecalculateOptions selects which monetary fields Recalculate overwrites.
// Steps apply in fixed order (item totals, then VAT, then grand total), each
// reading the output of the previous step.
type RecalculateOptions struct {
	RecalculateItemTotals bool    `json:"recalculate_item_totals"`
	RecalculateVat        bool    `json:"recalculate_vat"`
	VatPercent            float64 `json:"vat_percent"`
	RecalculateGrandTotal bool    `json:"recalculate_grand_total"`
}

// DefaultRecalculateOptions matches the interactive editing default: keep
// item totals and VAT as entered, refresh only the grand total.
func DefaultRecalculateOptions() RecalculateOptions {
	return RecalculateOptions{VatPercent: 18, RecalculateGrandTotal: true}
}

// Recalculate returns a copy of the receipt with the selected monetary
// fields recomputed. The input receipt is never mutated.
func Recalculate(receipt *models.Receipt, opts RecalculateOptions) models.Receipt {
	out := *receipt
	out.Items = make([]models.LineItem, len(receipt.Items))
	copy(out.Items, receipt.Items)

	if opts.RecalculateItemTotals {
		for i := range out.Items {
			out.Items[i].Total = ItemTotal(out.Items[i].Quantity, out.Items[i].UnitPrice)
		}
	}

	subtotal := SumLineItems(out.Items)

	if opts.RecalculateVat {
		out.VatAmount = Round2(subtotal * ParseNumber(opts.VatPercent) / 100)
	}

	if opts.RecalculateGrandTotal {
		out.TotalAmount = Round2(subtotal + ParseNumber(out.VatAmount))
	}

	return out
}
