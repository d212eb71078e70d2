package controllers

import (
	"encoding/json"
	"testing"

	"belegflow-backend/ledger"
	"belegflow-backend/models"
)

func TestRecalcOptionsKeepDefaultsForOmittedFlags(t *testing.T) {
	var in RecalculateDTO
	if err := json.Unmarshal([]byte(`{"recalculate_vat": true}`), &in); err != nil {
		t.Fatal(err)
	}

	opts := recalcOptionsFromDTO(&in, 0)
	if !opts.RecalculateVat {
		t.Error("recalculate_vat not applied")
	}
	if !opts.RecalculateGrandTotal {
		t.Error("omitted recalculate_grand_total must keep the default true")
	}
	if opts.VatPercent != 18 {
		t.Errorf("vat percent = %v, want built-in 18", opts.VatPercent)
	}

	// VAT recalc without the grand-total default would leave the receipt
	// inconsistent: subtotal 20 + new VAT 3.6 but a stale total of 20.
	receipt := models.Receipt{
		Items:       []models.LineItem{{Quantity: 2, UnitPrice: 10, Total: 20}},
		TotalAmount: 20,
	}
	out := ledger.Recalculate(&receipt, opts)
	if out.VatAmount != 3.6 {
		t.Errorf("vat = %v, want 3.6", out.VatAmount)
	}
	if out.TotalAmount != 23.6 {
		t.Errorf("grand total = %v, want 23.6", out.TotalAmount)
	}
}

func TestRecalcOptionsExplicitFlagsWin(t *testing.T) {
	var in RecalculateDTO
	raw := `{"recalculate_vat": true, "recalculate_grand_total": false, "vat_percent": 0}`
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatal(err)
	}

	opts := recalcOptionsFromDTO(&in, 0)
	if opts.RecalculateGrandTotal {
		t.Error("explicit recalculate_grand_total=false ignored")
	}
	if opts.VatPercent != 0 {
		t.Errorf("explicit zero VAT rate must stick, got %v", opts.VatPercent)
	}
}

func TestRecalcOptionsCustomerVatDefault(t *testing.T) {
	opts := recalcOptionsFromDTO(nil, 7.7)
	if opts.VatPercent != 7.7 {
		t.Errorf("customer rate not applied, got %v", opts.VatPercent)
	}

	var in RecalculateDTO
	if err := json.Unmarshal([]byte(`{"vat_percent": 13}`), &in); err != nil {
		t.Fatal(err)
	}
	opts = recalcOptionsFromDTO(&in, 7.7)
	if opts.VatPercent != 13 {
		t.Errorf("request rate must beat the customer rate, got %v", opts.VatPercent)
	}
}
