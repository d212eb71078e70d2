package services

import (
	"testing"
)

func TestParseExtractionJSON(t *testing.T) {
	answer := `{
		"vendor_name": " Cafe Krem ",
		"date": "2026-03-02",
		"receipt_number": "R-1042",
		"type": "Expense",
		"category": "meals",
		"payment_method": "card",
		"currency": "eur",
		"vat_amount": "3.60",
		"total_amount": 23.6,
		"notes": "",
		"line_items": [
			{"description": "espresso", "quantity": 2, "unit_price": "2.50", "total": 5},
			{"description": "lunch", "quantity": 1, "unit_price": 15, "total": 15}
		]
	}`

	got, err := ParseExtractionJSON(answer)
	if err != nil {
		t.Fatal(err)
	}
	if got.VendorName != "Cafe Krem" {
		t.Errorf("vendor = %q", got.VendorName)
	}
	if got.Type != "expense" {
		t.Errorf("type = %q, want expense", got.Type)
	}
	if got.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", got.Currency)
	}
	if got.VatAmount != 3.6 || got.TotalAmount != 23.6 {
		t.Errorf("amounts = %v/%v", got.VatAmount, got.TotalAmount)
	}
	if len(got.LineItems) != 2 || got.LineItems[0].UnitPrice != 2.5 {
		t.Errorf("line items = %+v", got.LineItems)
	}
}

func TestParseExtractionJSONFenced(t *testing.T) {
	answer := "```json\n{\"vendor_name\":\"Shop\",\"total_amount\":10}\n```"
	got, err := ParseExtractionJSON(answer)
	if err != nil {
		t.Fatal(err)
	}
	if got.VendorName != "Shop" || got.TotalAmount != 10 {
		t.Errorf("got %+v", got)
	}
}

func TestParseExtractionJSONMalformedNumbers(t *testing.T) {
	answer := `{"vendor_name":"X","vat_amount":"n/a","total_amount":null,
		"line_items":[{"description":"y","quantity":"two","unit_price":-1.5,"total":"-3"}]}`
	got, err := ParseExtractionJSON(answer)
	if err != nil {
		t.Fatal(err)
	}
	if got.VatAmount != 0 || got.TotalAmount != 0 {
		t.Errorf("malformed numbers should degrade to 0, got %v/%v", got.VatAmount, got.TotalAmount)
	}
	if got.LineItems[0].Quantity != 0 {
		t.Errorf("quantity = %v, want 0", got.LineItems[0].Quantity)
	}
	if got.LineItems[0].UnitPrice != -1.5 || got.LineItems[0].Total != -3 {
		t.Errorf("negative values must keep their sign: %+v", got.LineItems[0])
	}
}

func TestParseExtractionJSONGarbage(t *testing.T) {
	if _, err := ParseExtractionJSON("sorry, I cannot read this receipt"); err == nil {
		t.Fatal("expected error for non-JSON answer")
	}
}
