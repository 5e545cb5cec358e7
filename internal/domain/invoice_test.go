package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOpenInvoiceIndex(t *testing.T) {
	idx := NewOpenInvoiceIndex([]OpenInvoice{
		{Document: "NF-100", LedgerKey: "2.1.1.001"},
		{Document: "", LedgerKey: "ignored"},
		{Document: "nf-100", LedgerKey: "2.1.1.999"},
		{Document: "NF 200", LedgerKey: "2.1.1.002"},
	})

	if idx.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", idx.Len())
	}

	inv, ok := idx.Lookup(" nf-100 ")
	if !ok {
		t.Fatal("expected NF-100 to be found")
	}
	if inv.LedgerKey != "2.1.1.001" {
		t.Errorf("expected first occurrence to win, got %s", inv.LedgerKey)
	}

	if _, ok := idx.Lookup("NF200"); !ok {
		t.Error("expected whitespace-insensitive lookup")
	}
	if _, ok := idx.Lookup("NF-999"); ok {
		t.Error("expected NF-999 to miss")
	}

	keys := idx.Keys()
	if len(keys) != 2 || keys[0] != "NF-100" || keys[1] != "NF200" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestOpenInvoiceIndex_Nil(t *testing.T) {
	var idx *OpenInvoiceIndex
	if idx.Len() != 0 || idx.Keys() != nil {
		t.Fatal("expected empty nil index")
	}
	if _, ok := idx.Lookup("NF-1"); ok {
		t.Fatal("expected nil index to miss")
	}
}

func TestLedgerEntry_Fields(t *testing.T) {
	e := LedgerEntry{
		Location:    "0001",
		Date:        DeriveDate("15/03/2024"),
		Debit:       "1.1.2.085",
		Credit:      "1.1.3.010",
		Amount:      decimal.RequireFromString("150"),
		History:     "11",
		Description: "NF-100 ACME",
	}

	want := []string{"0001", "15/03/24", "1.1.2.085", "1.1.3.010", "150.00", "11", "NF-100 ACME"}
	got := e.Fields()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d = %q, want %q", i, got[i], want[i])
		}
	}

	e.DecimalComma = true
	if e.Fields()[4] != "150,00" {
		t.Errorf("expected comma amount, got %s", e.Fields()[4])
	}
	if e.Fields()[e.DateField()] != "15/03/24" {
		t.Error("DateField does not point at the date")
	}
}

func TestFiscalEntry_Fields(t *testing.T) {
	e := FiscalEntry{
		CompanyFlag: "M",
		Kind:        "R",
		InvoiceKey:  "NF-100",
		Literal:     "BX",
		Date:        DeriveDate("15/03/2024"),
		Document:    "NF-100",
		Gross:       decimal.RequireFromString("150"),
		Interest:    decimal.RequireFromString("1.5"),
		BankTable:   "B85",
		Secondary:   "S1",
	}

	got := e.Fields()
	if len(got) != 13 {
		t.Fatalf("expected 13 fields, got %d", len(got))
	}
	if got[e.DateField()] != "15/03/24" {
		t.Errorf("unexpected date field %q", got[e.DateField()])
	}
	if got[5] != InvalidDate {
		t.Errorf("expected missing issue date sentinel, got %q", got[5])
	}
	if got[7] != "150,00" || got[8] != "1,50" || got[11] != "0,00" {
		t.Errorf("unexpected amounts %v", got)
	}
}
