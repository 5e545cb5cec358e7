package usecase

import (
	"github.com/iho/ledgerimport/internal/domain"
)

// FiscalEntryEmitter builds the tax-export line of a matched row.
type FiscalEntryEmitter struct {
	enterprise *domain.Enterprise
	spec       domain.FiscalSpec
}

// NewFiscalEntryEmitter creates a new FiscalEntryEmitter.
func NewFiscalEntryEmitter(enterprise *domain.Enterprise, spec domain.FiscalSpec) *FiscalEntryEmitter {
	return &FiscalEntryEmitter{enterprise: enterprise, spec: spec}
}

// Emit returns the fiscal line, or false when the row has no gross value.
func (f *FiscalEntryEmitter) Emit(row ClassifiedRow, d domain.DerivedRow, inv domain.OpenInvoice) (domain.FiscalEntry, bool) {
	if !d.GrossValue.IsPositive() {
		return domain.FiscalEntry{}, false
	}

	return domain.FiscalEntry{
		CompanyFlag: f.enterprise.CompanyFlag(row.Branch.Headquarters),
		Kind:        f.spec.Kind,
		InvoiceKey:  inv.LedgerKey,
		Literal:     f.spec.Literal,
		Date:        d.Date,
		IssueDate:   d.Issue,
		Document:    d.DocumentText,
		Gross:       d.GrossValue,
		Interest:    d.Interest,
		BankTable:   f.enterprise.FiscalBankTable.Code(row.Bank, row.Cash, row.Branch.Headquarters),
		Secondary:   inv.SecondaryValue,
		Discount:    d.DiscountVal,
		Fine:        d.FineValue,
	}, true
}
