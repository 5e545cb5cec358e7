package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iho/ledgerimport/internal/domain"
)

const (
	hqLocation     = "0001"
	branchLocation = "0002"
	intercompany   = "1.1.9.001"
	branchMirror   = "2.1.9.002"
)

// column positions used by the fixtures
var testLayout = domain.ColumnLayout{
	ReportCode:       1,
	Company:          2,
	TituloType:       3,
	OperationType:    4,
	Natureza:         5,
	CounterpartyCode: 6,
	CounterpartyName: 7,
	Document:         9,
	Bank:             10,
	PostingDate:      14,
	IssueDate:        15,
	Gross:            16,
	Net:              17,
	Discount:         18,
	Interest1:        19,
	Interest2:        20,
	Fine:             21,
	Fee:              22,
}

type rowSpec struct {
	report, company, titulo, operation, natureza string
	counterpartyCode, counterparty, document     string
	bank, date, issue                            string
	gross, net, discount, interest1, interest2   string
	fine, fee                                    string
}

func record(r rowSpec) domain.Record {
	rec := make(domain.Record, 22)
	rec[0] = r.report
	rec[1] = r.company
	rec[2] = r.titulo
	rec[3] = r.operation
	rec[4] = r.natureza
	rec[5] = r.counterpartyCode
	rec[6] = r.counterparty
	rec[8] = r.document
	rec[9] = r.bank
	rec[13] = r.date
	rec[14] = r.issue
	rec[15] = r.gross
	rec[16] = r.net
	rec[17] = r.discount
	rec[18] = r.interest1
	rec[19] = r.interest2
	rec[20] = r.fine
	rec[21] = r.fee
	return rec
}

func receivableRow(company, bank, document, gross string) rowSpec {
	return rowSpec{
		report:           "101",
		company:          company,
		counterpartyCode: "C100",
		counterparty:     "Acme Ltda",
		document:         document,
		bank:             bank,
		date:             "15/03/2024 00:00:00",
		gross:            gross,
	}
}

func receivableRule() domain.RuleModule {
	return domain.RuleModule{
		ID:              "receivables",
		ReportCode:      "101",
		Layout:          testLayout,
		IgnoreTitulo:    []string{"PR"},
		IgnoreOperation: []string{"ADT"},
		IgnoreNatureza:  []string{"9999"},
		Variants: []domain.Variant{
			{
				Name: "cash",
				When: domain.When{Tender: "cash"},
				Entries: []domain.EntrySpec{
					{Name: "principal", Debit: "fixed:1.1.1.001", Credit: "counterparty", Amount: domain.AmountGross, History: "10", Description: []string{"{document}", "{counterparty}"}},
				},
			},
			{
				Name: "bank",
				When: domain.When{Tender: "bank"},
				Entries: []domain.EntrySpec{
					{Name: "principal", Debit: "bank", Credit: "counterparty", Amount: domain.AmountGross, History: "11", Description: []string{"{document}", "{counterparty}"}, Mirror: true},
					{Name: "interest", Debit: "bank", Credit: "fixed:3.1.1.001", Amount: domain.AmountInterest, History: "12", Description: []string{"JUROS", "{document}"}, Mirror: true},
					{Name: "fee", Debit: "fixed:4.1.1.001", Credit: "bank", Amount: domain.AmountFee, History: "13", Description: []string{"TARIFA"}},
				},
			},
		},
	}
}

func reconcileRule() domain.RuleModule {
	return domain.RuleModule{
		ID:                "settlements",
		ReportCode:        "201",
		Layout:            testLayout,
		InvoiceLayoutName: "open_invoices",
		InvoiceLayout:     &domain.InvoiceLayout{Document: 1, LedgerKey: 2, SecondaryValue: 3},
		Reconcile:         true,
		Fiscal:            &domain.FiscalSpec{Kind: "R", Literal: "BX"},
		Variants: []domain.Variant{
			{
				Name: "any",
				Entries: []domain.EntrySpec{
					{Name: "principal", Debit: "bank", Credit: "ledger_key", Amount: domain.AmountGross, History: "20", Description: []string{"{document}", "{counterparty}"}},
				},
			},
		},
	}
}

func advanceRule() domain.RuleModule {
	return domain.RuleModule{
		ID:         "advances",
		ReportCode: "301",
		Layout:     testLayout,
		Variants: []domain.Variant{
			{
				Name: "any",
				Entries: []domain.EntrySpec{
					{Name: "advance", Debit: "bank", Credit: "fixed:2.1.3.001", Amount: domain.AmountNet, History: "30", Description: []string{"ADIANTAMENTO", "{counterparty}", "{document}"}, Zero: domain.ZeroSkipRow},
					{Name: "discount", Debit: "fixed:3.2.1.001", Credit: "bank", Amount: domain.AmountDiscount, History: "31", Description: []string{"{counterparty}"}},
				},
			},
		},
	}
}

func testEnterprise(t *testing.T, rules ...domain.RuleModule) *domain.Enterprise {
	t.Helper()

	e := &domain.Enterprise{
		ID:                   "acme",
		Name:                 "Acme",
		HeadquartersLocation: hqLocation,
		CashCode:             "999",
		IntercompanyAccount:  intercompany,
		CompanyTypeFlags:     domain.CompanyTypeFlags{Headquarters: "M", Branch: "F"},
		FiscalBankTable: domain.FiscalBankTable{
			Cash: "CX", Branch: "FL", Default: "BCO", Prefix: "B", Banks: []string{"85", "341"},
		},
		Branches: map[string]domain.Branch{
			"1": {Location: hqLocation, Headquarters: true},
			"2": {Location: branchLocation, MirrorAccount: branchMirror},
		},
		Rules: rules,
	}
	require.NoError(t, e.Validate())
	return e
}

func testCatalog(t *testing.T, enterprises ...*domain.Enterprise) *domain.Catalog {
	t.Helper()

	c, err := domain.NewCatalog("test", enterprises)
	require.NoError(t, err)
	return c
}

func fields(l domain.Line) string {
	out := ""
	for i, f := range l.Fields() {
		if i > 0 {
			out += ";"
		}
		out += f
	}
	return out
}
