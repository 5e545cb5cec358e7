package usecase

import (
	"strings"

	"github.com/iho/ledgerimport/internal/domain"
)

// EntryEmitter applies posting templates to classified, derived rows.
type EntryEmitter struct {
	enterprise *domain.Enterprise
}

// NewEntryEmitter creates a new EntryEmitter.
func NewEntryEmitter(enterprise *domain.Enterprise) *EntryEmitter {
	return &EntryEmitter{enterprise: enterprise}
}

// Emit produces the ledger lines of one row. ledgerKey is the registry
// account of a matched invoice and is empty outside reconciliation rules.
//
// A branch row that is not paid in cash gets, for each entry marked
// mirror, a branch line whose bank side is replaced by the intercompany
// account and a headquarters line that keeps the bank and posts the
// branch's mirror account on the other side.
func (e *EntryEmitter) Emit(row ClassifiedRow, d domain.DerivedRow, variant *domain.Variant, ledgerKey string) ([]domain.LedgerEntry, SkipReason) {
	mirroring := !row.Branch.Headquarters && !row.Cash

	entries := make([]domain.LedgerEntry, 0, len(variant.Entries))
	for _, spec := range variant.Entries {
		amount := d.Amount(spec.Amount)
		if !amount.IsPositive() {
			if spec.Zero == domain.ZeroSkipRow {
				return nil, SkipZeroAmount
			}
			continue
		}

		entry := domain.LedgerEntry{
			Location:     row.Branch.Location,
			Date:         d.Date,
			Debit:        e.account(spec.Debit, row, ledgerKey),
			Credit:       e.account(spec.Credit, row, ledgerKey),
			Amount:       amount,
			History:      spec.History,
			Description:  describe(spec, d),
			DecimalComma: spec.DecimalComma,
		}

		if !spec.Mirror || !mirroring {
			entries = append(entries, entry)
			continue
		}

		mirror := entry
		mirror.Location = e.enterprise.HeadquartersLocation
		mirror.Mirrored = true

		bankDebit, _ := spec.BankSide()
		if bankDebit {
			entry.Debit = e.enterprise.IntercompanyAccount
			mirror.Credit = row.Branch.MirrorAccount
		} else {
			entry.Credit = e.enterprise.IntercompanyAccount
			mirror.Debit = row.Branch.MirrorAccount
		}

		entries = append(entries, entry, mirror)
	}

	return entries, SkipNone
}

func (e *EntryEmitter) account(src domain.AccountSource, row ClassifiedRow, ledgerKey string) string {
	switch src.Kind() {
	case domain.AccountBank:
		return row.Bank
	case domain.AccountFixed:
		return src.Code()
	case domain.AccountCounterparty:
		return row.CounterpartyCode
	case domain.AccountLedgerKey:
		return ledgerKey
	case domain.AccountMirror:
		return row.Branch.MirrorAccount
	case domain.AccountIntercompany:
		return e.enterprise.IntercompanyAccount
	default:
		return ""
	}
}

// describe joins the description parts in template order.
func describe(spec domain.EntrySpec, d domain.DerivedRow) string {
	parts := make([]string, 0, len(spec.Description))
	for _, p := range spec.Description {
		var text string
		switch p {
		case domain.PlaceholderDocument:
			text = d.DocumentText
		case domain.PlaceholderCounterparty:
			text = d.Counterparty
		case domain.PlaceholderHistory:
			text = spec.History
		default:
			text = domain.NormalizeText(p)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
