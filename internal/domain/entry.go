package domain

import (
	"github.com/shopspring/decimal"
)

// Line is an emitted export line.
type Line interface {
	// Fields returns the serialized fields in export order.
	Fields() []string
	// DateField is the index in Fields of the dd/mm/yy date used for sorting.
	DateField() int
}

// LedgerEntry is one double-entry bookkeeping line of the ledger import.
type LedgerEntry struct {
	Location     string
	Date         Date
	Debit        string
	Credit       string
	Amount       decimal.Decimal
	History      string
	Description  string
	DecimalComma bool
	Mirrored     bool
}

// Fields returns location;date;debit;credit;amount;history;description.
func (e LedgerEntry) Fields() []string {
	amount := FormatAmount(e.Amount)
	if e.DecimalComma {
		amount = FormatAmountComma(e.Amount)
	}
	return []string{
		e.Location,
		e.Date.String(),
		e.Debit,
		e.Credit,
		amount,
		e.History,
		e.Description,
	}
}

// DateField implements Line.
func (e LedgerEntry) DateField() int { return 1 }

// FiscalEntry is one line of the tax export produced by reconciliation rules.
type FiscalEntry struct {
	CompanyFlag string
	Kind        string
	InvoiceKey  string
	Literal     string
	Date        Date
	IssueDate   Date
	Document    string
	Gross       decimal.Decimal
	Interest    decimal.Decimal
	BankTable   string
	Secondary   string
	Discount    decimal.Decimal
	Fine        decimal.Decimal
}

// Fields returns the 13-field fiscal schema. Numbers use a comma separator.
func (e FiscalEntry) Fields() []string {
	return []string{
		e.CompanyFlag,
		e.Kind,
		e.InvoiceKey,
		e.Literal,
		e.Date.String(),
		e.IssueDate.String(),
		e.Document,
		FormatAmountComma(e.Gross),
		FormatAmountComma(e.Interest),
		e.BankTable,
		e.Secondary,
		FormatAmountComma(e.Discount),
		FormatAmountComma(e.Fine),
	}
}

// DateField implements Line.
func (e FiscalEntry) DateField() int { return 4 }
