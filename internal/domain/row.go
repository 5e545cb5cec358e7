package domain

import (
	"fmt"
	"strings"
)

// Record is one spreadsheet row as read by the row-reading collaborator.
// Positions are 1-based to match the documented source layouts.
type Record []string

// Field returns the trimmed value at a 1-based position, or "" when the
// position is outside the record.
func (r Record) Field(pos int) string {
	if pos <= 0 || pos > len(r) {
		return ""
	}
	return strings.TrimSpace(r[pos-1])
}

// TransactionRow is a named view over a transaction Record. Values are kept
// exactly as read; derivation happens later.
type TransactionRow struct {
	Line             int
	ReportCode       string
	Company          string
	TituloType       string
	OperationType    string
	Natureza         string
	CounterpartyCode string
	CounterpartyName string
	Document         string
	Bank             string
	PostingDate      string
	IssueDate        string
	Gross            string
	Net              string
	Discount         string
	Interest1        string
	Interest2        string
	Fine             string
	Fee              string
}

// ColumnLayout maps TransactionRow fields to 1-based record positions.
// A zero position means the rule does not read that field.
type ColumnLayout struct {
	ReportCode       int `yaml:"report_code"`
	Company          int `yaml:"company"`
	TituloType       int `yaml:"titulo_type"`
	OperationType    int `yaml:"operation_type"`
	Natureza         int `yaml:"natureza"`
	CounterpartyCode int `yaml:"counterparty_code"`
	CounterpartyName int `yaml:"counterparty_name"`
	Document         int `yaml:"document"`
	Bank             int `yaml:"bank"`
	PostingDate      int `yaml:"posting_date"`
	IssueDate        int `yaml:"issue_date"`
	Gross            int `yaml:"gross"`
	Net              int `yaml:"net"`
	Discount         int `yaml:"discount"`
	Interest1        int `yaml:"interest1"`
	Interest2        int `yaml:"interest2"`
	Fine             int `yaml:"fine"`
	Fee              int `yaml:"fee"`
}

// Validate checks the positions every rule depends on.
func (l ColumnLayout) Validate() error {
	if l.ReportCode <= 0 {
		return fmt.Errorf("%w: report_code position is required", ErrInvalidLayout)
	}
	if l.Company <= 0 {
		return fmt.Errorf("%w: company position is required", ErrInvalidLayout)
	}
	if l.PostingDate <= 0 {
		return fmt.Errorf("%w: posting_date position is required", ErrInvalidLayout)
	}
	return nil
}

// Map builds a TransactionRow from a record. line is the spreadsheet row
// number, used only for logging and exception reports.
func (l ColumnLayout) Map(rec Record, line int) TransactionRow {
	return TransactionRow{
		Line:             line,
		ReportCode:       rec.Field(l.ReportCode),
		Company:          rec.Field(l.Company),
		TituloType:       rec.Field(l.TituloType),
		OperationType:    rec.Field(l.OperationType),
		Natureza:         rec.Field(l.Natureza),
		CounterpartyCode: rec.Field(l.CounterpartyCode),
		CounterpartyName: rec.Field(l.CounterpartyName),
		Document:         rec.Field(l.Document),
		Bank:             rec.Field(l.Bank),
		PostingDate:      rec.Field(l.PostingDate),
		IssueDate:        rec.Field(l.IssueDate),
		Gross:            rec.Field(l.Gross),
		Net:              rec.Field(l.Net),
		Discount:         rec.Field(l.Discount),
		Interest1:        rec.Field(l.Interest1),
		Interest2:        rec.Field(l.Interest2),
		Fine:             rec.Field(l.Fine),
		Fee:              rec.Field(l.Fee),
	}
}

// InvoiceLayout maps open-invoice registry columns.
type InvoiceLayout struct {
	Document       int `yaml:"document"`
	LedgerKey      int `yaml:"ledger_key"`
	SecondaryValue int `yaml:"secondary_value"`
}

// Validate checks the registry positions.
func (l InvoiceLayout) Validate() error {
	if l.Document <= 0 || l.LedgerKey <= 0 {
		return fmt.Errorf("%w: invoice layout needs document and ledger_key", ErrInvalidLayout)
	}
	return nil
}
