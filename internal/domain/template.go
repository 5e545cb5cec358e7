package domain

import (
	"fmt"
	"strings"
)

// AccountSource names where an entry side takes its account code from:
// "bank", "counterparty", "ledger_key", "mirror", "intercompany" or
// "fixed:<code>".
type AccountSource string

// Account source kinds.
const (
	AccountBank         AccountSource = "bank"
	AccountFixed        AccountSource = "fixed"
	AccountCounterparty AccountSource = "counterparty"
	AccountLedgerKey    AccountSource = "ledger_key"
	AccountMirror       AccountSource = "mirror"
	AccountIntercompany AccountSource = "intercompany"
)

// Kind returns the source kind without a fixed code.
func (a AccountSource) Kind() AccountSource {
	kind, _, _ := strings.Cut(string(a), ":")
	return AccountSource(strings.TrimSpace(kind))
}

// Code returns the literal account of a fixed source.
func (a AccountSource) Code() string {
	_, code, _ := strings.Cut(string(a), ":")
	return strings.TrimSpace(code)
}

func (a AccountSource) validate(reconcile bool) error {
	switch a.Kind() {
	case AccountBank, AccountCounterparty, AccountMirror, AccountIntercompany:
		return nil
	case AccountLedgerKey:
		if !reconcile {
			return fmt.Errorf("%w: ledger_key account outside a reconciliation rule", ErrInvalidTemplate)
		}
		return nil
	case AccountFixed:
		if a.Code() == "" {
			return fmt.Errorf("%w: fixed account without code", ErrInvalidTemplate)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown account source %q", ErrInvalidTemplate, string(a))
	}
}

// AmountSource names the derived field an entry posts.
type AmountSource string

const (
	AmountGross       AmountSource = "gross"
	AmountNet         AmountSource = "net"
	AmountDiscount    AmountSource = "discount"
	AmountInterest    AmountSource = "interest"
	AmountInterestRaw AmountSource = "interest_raw"
	AmountFine        AmountSource = "fine"
	AmountFee         AmountSource = "fee"
)

var validAmounts = map[AmountSource]bool{
	AmountGross: true, AmountNet: true, AmountDiscount: true, AmountInterest: true,
	AmountInterestRaw: true, AmountFine: true, AmountFee: true,
}

// ZeroPolicy decides what a zero amount does.
type ZeroPolicy string

const (
	// ZeroSuppress drops only the line whose amount is zero.
	ZeroSuppress ZeroPolicy = "suppress"
	// ZeroSkipRow drops every line of the row.
	ZeroSkipRow ZeroPolicy = "skip_row"
)

// EmptyPolicy decides what a module writes when it emits nothing.
type EmptyPolicy string

const (
	EmptySkip        EmptyPolicy = "skip"
	EmptyPlaceholder EmptyPolicy = "placeholder"
)

// Description placeholders.
const (
	PlaceholderDocument     = "{document}"
	PlaceholderCounterparty = "{counterparty}"
	PlaceholderHistory      = "{history}"
)

// EntrySpec is one line of a posting template.
type EntrySpec struct {
	Name         string        `yaml:"name"`
	Debit        AccountSource `yaml:"debit"`
	Credit       AccountSource `yaml:"credit"`
	Amount       AmountSource  `yaml:"amount"`
	History      string        `yaml:"history"`
	Description  []string      `yaml:"description"`
	Zero         ZeroPolicy    `yaml:"zero"`
	Mirror       bool          `yaml:"mirror"`
	DecimalComma bool          `yaml:"decimal_comma"`
}

// BankSide reports which side of the entry reads the bank account.
func (s EntrySpec) BankSide() (debit, credit bool) {
	return s.Debit.Kind() == AccountBank, s.Credit.Kind() == AccountBank
}

func (s *EntrySpec) validate(reconcile bool) error {
	if err := s.Debit.validate(reconcile); err != nil {
		return fmt.Errorf("entry %s debit: %w", s.Name, err)
	}
	if err := s.Credit.validate(reconcile); err != nil {
		return fmt.Errorf("entry %s credit: %w", s.Name, err)
	}
	if !validAmounts[s.Amount] {
		return fmt.Errorf("%w: entry %s: unknown amount source %q", ErrInvalidTemplate, s.Name, s.Amount)
	}
	if s.History == "" || CanonicalCode(s.History) == "" {
		return fmt.Errorf("%w: entry %s: history code must be numeric", ErrInvalidTemplate, s.Name)
	}
	switch s.Zero {
	case "":
		s.Zero = ZeroSuppress
	case ZeroSuppress, ZeroSkipRow:
	default:
		return fmt.Errorf("%w: entry %s: unknown zero policy %q", ErrInvalidTemplate, s.Name, s.Zero)
	}
	if s.Mirror {
		debit, credit := s.BankSide()
		if debit == credit {
			return fmt.Errorf("%w: entry %s: mirrored entries need exactly one bank side", ErrInvalidTemplate, s.Name)
		}
	}
	return nil
}

// When selects the variant of a template for a row.
type When struct {
	Tender         string   `yaml:"tender"` // cash | bank
	Origin         string   `yaml:"origin"` // headquarters | branch
	OperationTypes []string `yaml:"operation_types"`
}

// Matches reports whether a classified row satisfies the clause.
func (w When) Matches(cash, headquarters bool, operationType string) bool {
	switch w.Tender {
	case "cash":
		if !cash {
			return false
		}
	case "bank":
		if cash {
			return false
		}
	}
	switch w.Origin {
	case "headquarters":
		if !headquarters {
			return false
		}
	case "branch":
		if headquarters {
			return false
		}
	}
	if len(w.OperationTypes) > 0 && !InSet(w.OperationTypes, operationType) {
		return false
	}
	return true
}

func (w When) validate() error {
	switch w.Tender {
	case "", "cash", "bank":
	default:
		return fmt.Errorf("%w: unknown tender %q", ErrInvalidTemplate, w.Tender)
	}
	switch w.Origin {
	case "", "headquarters", "branch":
	default:
		return fmt.Errorf("%w: unknown origin %q", ErrInvalidTemplate, w.Origin)
	}
	return nil
}

// Variant is a sub-case of a posting template.
type Variant struct {
	Name    string      `yaml:"name"`
	When    When        `yaml:"when"`
	Entries []EntrySpec `yaml:"entries"`
}

// FiscalSpec holds the fixed literals of the fiscal export line.
type FiscalSpec struct {
	Kind    string `yaml:"kind"`
	Literal string `yaml:"literal"`
}

// RuleModule is the PostingTemplate of one (enterprise, report code) pair
// together with the row filters and output policy that go with it.
type RuleModule struct {
	ID                string         `yaml:"id"`
	Title             string         `yaml:"title"`
	ReportCode        string         `yaml:"report_code"`
	LayoutName        string         `yaml:"layout"`
	InvoiceLayoutName string         `yaml:"invoice_layout"`
	Reconcile         bool           `yaml:"reconcile"`
	IgnoreTitulo      []string       `yaml:"ignore_titulo"`
	IgnoreOperation   []string       `yaml:"ignore_operation"`
	IgnoreNatureza    []string       `yaml:"ignore_natureza"`
	EmptyPolicy       EmptyPolicy    `yaml:"empty_policy"`
	Placeholder       string         `yaml:"placeholder"`
	Fiscal            *FiscalSpec    `yaml:"fiscal"`
	Variants          []Variant      `yaml:"variants"`
	Layout            ColumnLayout   `yaml:"-"`
	InvoiceLayout     *InvoiceLayout `yaml:"-"`
}

// Validate checks the module and fills defaults.
func (m *RuleModule) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidTemplate)
	}
	if CanonicalCode(m.ReportCode) == "" {
		return fmt.Errorf("%w: report_code must be numeric", ErrInvalidTemplate)
	}
	if err := m.Layout.Validate(); err != nil {
		return err
	}
	if m.Reconcile {
		if m.InvoiceLayout == nil {
			return fmt.Errorf("%w: reconciliation rule needs an invoice layout", ErrInvalidTemplate)
		}
		if err := m.InvoiceLayout.Validate(); err != nil {
			return err
		}
		if m.Fiscal == nil {
			return fmt.Errorf("%w: reconciliation rule needs a fiscal section", ErrInvalidTemplate)
		}
		if m.Layout.Document <= 0 {
			return fmt.Errorf("%w: reconciliation rule needs a document column", ErrInvalidLayout)
		}
	}
	switch m.EmptyPolicy {
	case "":
		m.EmptyPolicy = EmptySkip
		if m.Reconcile {
			m.EmptyPolicy = EmptyPlaceholder
		}
	case EmptySkip, EmptyPlaceholder:
	default:
		return fmt.Errorf("%w: unknown empty policy %q", ErrInvalidTemplate, m.EmptyPolicy)
	}
	if m.EmptyPolicy == EmptyPlaceholder && m.Placeholder == "" {
		m.Placeholder = "Nenhum lancamento gerado"
	}
	if len(m.Variants) == 0 {
		return fmt.Errorf("%w: rule has no variants", ErrInvalidTemplate)
	}
	for i := range m.Variants {
		v := &m.Variants[i]
		if err := v.When.validate(); err != nil {
			return fmt.Errorf("variant %s: %w", v.Name, err)
		}
		if len(v.Entries) == 0 {
			return fmt.Errorf("%w: variant %s has no entries", ErrInvalidTemplate, v.Name)
		}
		for j := range v.Entries {
			if err := v.Entries[j].validate(m.Reconcile); err != nil {
				return fmt.Errorf("variant %s: %w", v.Name, err)
			}
		}
	}
	return nil
}

// SelectVariant returns the first variant matching the row, if any.
func (m *RuleModule) SelectVariant(cash, headquarters bool, operationType string) (*Variant, bool) {
	for i := range m.Variants {
		if m.Variants[i].When.Matches(cash, headquarters, operationType) {
			return &m.Variants[i], true
		}
	}
	return nil, false
}

// InSet compares codes case-insensitively, treating numeric codes by value.
func InSet(set []string, v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	canon := CanonicalCode(v)
	for _, s := range set {
		s = strings.TrimSpace(s)
		if strings.EqualFold(s, v) {
			return true
		}
		if canon != "" && CanonicalCode(s) == canon {
			return true
		}
	}
	return false
}
