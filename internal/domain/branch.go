package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Branch is one CompanyBranchMap entry.
type Branch struct {
	Code          string `yaml:"-"`
	Location      string `yaml:"location"`
	Headquarters  bool   `yaml:"headquarters"`
	MirrorAccount string `yaml:"mirror_account"`
}

// CompanyTypeFlags are the fiscal company-type markers per origin.
type CompanyTypeFlags struct {
	Headquarters string `yaml:"headquarters"`
	Branch       string `yaml:"branch"`
}

// FiscalBankTable resolves the "tabela fiscal" code of a fiscal line.
type FiscalBankTable struct {
	Cash    string   `yaml:"cash"`
	Branch  string   `yaml:"branch"`
	Default string   `yaml:"default"`
	Prefix  string   `yaml:"prefix"`
	Banks   []string `yaml:"banks"`
}

// Code returns the table code for a bank. Cash wins over origin, origin
// wins over the bank list.
func (t FiscalBankTable) Code(bank string, cash, headquarters bool) string {
	if cash {
		return t.Cash
	}
	if !headquarters {
		return t.Branch
	}
	key := CanonicalCode(bank)
	for _, b := range t.Banks {
		if CanonicalCode(b) == key && key != "" {
			return t.Prefix + key
		}
	}
	return t.Default
}

// Enterprise is the static configuration of one client company.
type Enterprise struct {
	ID                   string            `yaml:"id"`
	Name                 string            `yaml:"name"`
	HeadquartersLocation string            `yaml:"headquarters_location"`
	CashCode             string            `yaml:"cash_code"`
	IntercompanyAccount  string            `yaml:"intercompany_account"`
	CompanyTypeFlags     CompanyTypeFlags  `yaml:"company_type_flags"`
	FiscalBankTable      FiscalBankTable   `yaml:"fiscal_bank_table"`
	Branches             map[string]Branch `yaml:"branches"`
	Rules                []RuleModule      `yaml:"rules"`
}

// Validate checks the enterprise tables and every rule module. It also
// canonicalizes branch keys, so it must run before ResolveBranch.
func (e *Enterprise) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: enterprise id is required", ErrInvalidTemplate)
	}
	if e.HeadquartersLocation == "" {
		return fmt.Errorf("%w: %s: headquarters_location is required", ErrInvalidTemplate, e.ID)
	}
	if e.IntercompanyAccount == "" {
		return fmt.Errorf("%w: %s: intercompany_account is required", ErrInvalidTemplate, e.ID)
	}

	branches := make(map[string]Branch, len(e.Branches))
	hq := 0
	for code, b := range e.Branches {
		key := CanonicalCode(code)
		if key == "" {
			return fmt.Errorf("%w: %s: branch code %q is not numeric", ErrInvalidTemplate, e.ID, code)
		}
		if _, dup := branches[key]; dup {
			return fmt.Errorf("%w: %s: branch code %s declared twice", ErrInvalidTemplate, e.ID, key)
		}
		if b.Location == "" {
			return fmt.Errorf("%w: %s: branch %s has no location", ErrInvalidTemplate, e.ID, key)
		}
		if b.Headquarters {
			hq++
		} else if b.MirrorAccount == "" {
			return fmt.Errorf("%w: %s: branch %s has no mirror_account", ErrInvalidTemplate, e.ID, key)
		}
		b.Code = key
		branches[key] = b
	}
	if hq == 0 {
		return fmt.Errorf("%w: %s: no headquarters branch", ErrInvalidTemplate, e.ID)
	}
	e.Branches = branches

	seen := make(map[string]bool, len(e.Rules))
	for i := range e.Rules {
		r := &e.Rules[i]
		if seen[r.ID] {
			return fmt.Errorf("%w: %s: rule %s declared twice", ErrInvalidTemplate, e.ID, r.ID)
		}
		seen[r.ID] = true
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s/%s: %w", e.ID, r.ID, err)
		}
	}

	return nil
}

// ResolveBranch looks up a company/branch code.
func (e *Enterprise) ResolveBranch(code string) (Branch, bool) {
	key := CanonicalCode(code)
	if key == "" {
		return Branch{}, false
	}
	b, ok := e.Branches[key]
	return b, ok
}

// IsCash reports whether a bank code is the cash-tender sentinel.
func (e *Enterprise) IsCash(bank string) bool {
	key := CanonicalCode(bank)
	return key != "" && key == CanonicalCode(e.CashCode)
}

// Rule returns a rule module by id.
func (e *Enterprise) Rule(id string) (*RuleModule, bool) {
	for i := range e.Rules {
		if e.Rules[i].ID == id {
			return &e.Rules[i], true
		}
	}
	return nil, false
}

// CompanyFlag returns the fiscal company-type flag for an origin.
func (e *Enterprise) CompanyFlag(headquarters bool) string {
	if headquarters {
		return e.CompanyTypeFlags.Headquarters
	}
	return e.CompanyTypeFlags.Branch
}

// CanonicalCode normalizes a numeric code as spreadsheets deliver it
// ("001", "1", "1.0") to its integer form. Non-numeric input yields "".
func CanonicalCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatInt(int64(f), 10)
}
