package usecase

import (
	"sort"

	"github.com/schollz/closestmatch"

	"github.com/iho/ledgerimport/internal/domain"
)

const (
	noteNotFound       = "documento nao encontrado no cadastro de titulos em aberto"
	noteMissingDoc     = "documento ausente na linha"
	noteSuggestionHint = "sugestao:"
)

// InvoiceMatcher resolves transaction documents against the open-invoice
// registry. It is built once per run and is safe for concurrent reads.
type InvoiceMatcher struct {
	index *domain.OpenInvoiceIndex
	fuzzy *closestmatch.ClosestMatch
}

// NewInvoiceMatcher indexes registry records with a layout.
func NewInvoiceMatcher(records []domain.Record, layout domain.InvoiceLayout) *InvoiceMatcher {
	invoices := make([]domain.OpenInvoice, 0, len(records))
	for _, rec := range records {
		invoices = append(invoices, domain.OpenInvoice{
			Document:       rec.Field(layout.Document),
			LedgerKey:      rec.Field(layout.LedgerKey),
			SecondaryValue: rec.Field(layout.SecondaryValue),
		})
	}

	m := &InvoiceMatcher{index: domain.NewOpenInvoiceIndex(invoices)}
	if m.index.Len() > 0 {
		m.fuzzy = closestmatch.New(m.index.Keys(), []int{2, 3})
	}
	return m
}

// Len returns the number of indexed invoices.
func (m *InvoiceMatcher) Len() int {
	return m.index.Len()
}

// Match looks up the row's document. On a miss it returns the exception
// record that replaces the row's ledger and fiscal output.
func (m *InvoiceMatcher) Match(row ClassifiedRow, d domain.DerivedRow) (domain.OpenInvoice, *domain.UnmatchedInvoiceRecord) {
	if inv, ok := m.index.Lookup(row.Document); ok {
		return inv, nil
	}

	return domain.OpenInvoice{}, &domain.UnmatchedInvoiceRecord{
		Location:     row.Branch.Location,
		Counterparty: d.Counterparty,
		Document:     d.DocumentText,
		Date:         d.Date,
		Gross:        d.GrossValue,
		Net:          d.NetValue,
		Bank:         row.Bank,
		Note:         m.note(row.Document),
	}
}

func (m *InvoiceMatcher) note(document string) string {
	key := domain.NormalizeKey(document)
	if key == "" {
		return noteMissingDoc
	}
	if suggestion := m.suggest(key); suggestion != "" {
		return noteNotFound + "; " + noteSuggestionHint + " " + suggestion
	}
	return noteNotFound
}

// suggest returns the registry key closest to key. closestmatch breaks
// score ties in map order, so it only narrows the registry to keys sharing
// an n-gram with key; the pool covers the whole registry so that set is
// fixed, and ranking is by shared prefix, length distance and then value.
func (m *InvoiceMatcher) suggest(key string) string {
	if m.fuzzy == nil {
		return ""
	}

	candidates := m.fuzzy.ClosestN(key, m.index.Len())
	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		pi, pj := sharedPrefix(key, candidates[i]), sharedPrefix(key, candidates[j])
		if pi != pj {
			return pi > pj
		}
		di, dj := lengthDistance(key, candidates[i]), lengthDistance(key, candidates[j])
		if di != dj {
			return di < dj
		}
		return candidates[i] < candidates[j]
	})

	if sharedPrefix(key, candidates[0]) == 0 {
		return ""
	}
	return candidates[0]
}

func lengthDistance(a, b string) int {
	if len(a) > len(b) {
		return len(a) - len(b)
	}
	return len(b) - len(a)
}

func sharedPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
