package usecase

import (
	"sort"
	"time"

	"github.com/iho/ledgerimport/internal/domain"
)

// SortLines orders lines by their embedded dd/mm/yy date. The sort is stable
// and lines whose date does not parse keep their order after all dated lines.
func SortLines[T domain.Line](lines []T) {
	type keyed struct {
		at    time.Time
		valid bool
	}

	keys := make([]keyed, len(lines))
	for i, l := range lines {
		at, ok := domain.ParseLedgerDate(l.Fields()[l.DateField()])
		keys[i] = keyed{at: at, valid: ok}
	}

	idx := make([]int, len(lines))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.valid != kb.valid {
			return ka.valid
		}
		return ka.at.Before(kb.at)
	})

	sorted := make([]T, len(lines))
	for i, j := range idx {
		sorted[i] = lines[j]
	}
	copy(lines, sorted)
}
