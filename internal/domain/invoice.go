package domain

import (
	"github.com/shopspring/decimal"
)

// OpenInvoice is one indexed entry of the open-invoice registry.
type OpenInvoice struct {
	Key            string
	Document       string
	LedgerKey      string
	SecondaryValue string
}

// OpenInvoiceIndex maps normalized document keys to registry entries. It is
// built once per run and only read afterwards.
type OpenInvoiceIndex struct {
	entries map[string]OpenInvoice
	keys    []string
}

// NewOpenInvoiceIndex indexes invoices by normalized document key. When a key
// repeats, the first occurrence wins.
func NewOpenInvoiceIndex(invoices []OpenInvoice) *OpenInvoiceIndex {
	idx := &OpenInvoiceIndex{entries: make(map[string]OpenInvoice, len(invoices))}
	for _, inv := range invoices {
		key := NormalizeKey(inv.Document)
		if key == "" {
			continue
		}
		if _, exists := idx.entries[key]; exists {
			continue
		}
		inv.Key = key
		idx.entries[key] = inv
		idx.keys = append(idx.keys, key)
	}
	return idx
}

// Lookup finds the registry entry of a document number.
func (i *OpenInvoiceIndex) Lookup(document string) (OpenInvoice, bool) {
	if i == nil {
		return OpenInvoice{}, false
	}
	inv, ok := i.entries[NormalizeKey(document)]
	return inv, ok
}

// Keys returns the indexed keys in registry order.
func (i *OpenInvoiceIndex) Keys() []string {
	if i == nil {
		return nil
	}
	return i.keys
}

// Len returns the number of indexed invoices.
func (i *OpenInvoiceIndex) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// UnmatchedInvoiceRecord is a transaction routed to the exception report
// because its document was not in the registry.
type UnmatchedInvoiceRecord struct {
	Location     string
	Counterparty string
	Document     string
	Date         Date
	Gross        decimal.Decimal
	Net          decimal.Decimal
	Bank         string
	Note         string
}
