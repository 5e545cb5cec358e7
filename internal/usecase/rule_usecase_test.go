package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/ledgerimport/internal/domain"
	"github.com/iho/ledgerimport/internal/usecase"
	"github.com/iho/ledgerimport/internal/usecase/mocks"
)

func newRunner(encoder usecase.LineEncoder, exceptions usecase.ExceptionWriter, store usecase.ArtifactStore) *usecase.RuleRunner {
	return usecase.NewRuleRunner(encoder, exceptions, store, zerolog.Nop(), nil)
}

func TestRuleRunner_EvaluateReconciliation(t *testing.T) {
	enterprise := testEnterprise(t, reconcileRule())
	rule := &enterprise.Rules[0]
	matcher := usecase.NewInvoiceMatcher(registry(), *rule.InvoiceLayout)

	rows := []domain.Record{
		record(settlementRow("1", "85", "NF-100", "150.00")),
		record(settlementRow("1", "85", "NF-999", "75.00")),
		record(receivableRow("1", "85", "NF-100", "10")),
	}

	out := newRunner(nil, nil, nil).Evaluate(enterprise, rule, rows, matcher)

	require.Len(t, out.Fiscal, 1)
	assert.Equal(t, "X", out.Fiscal[0].InvoiceKey)

	require.Len(t, out.Ledger, 1)
	assert.Equal(t, "0001;15/03/24;85;X;150.00;20;NF-100 Acme Ltda", fields(out.Ledger[0]))

	require.Len(t, out.Unmatched, 1)
	assert.Equal(t, "NF-999", out.Unmatched[0].Document)

	assert.Equal(t, 3, out.Stats.Rows)
	assert.Equal(t, 1, out.Stats.Skipped[string(usecase.SkipReportCode)])
	assert.Equal(t, 1, out.Stats.LedgerLines)
	assert.Equal(t, 1, out.Stats.FiscalLines)
	assert.Equal(t, 1, out.Stats.Unmatched)
}

func TestRuleRunner_EvaluateSortsAndIsDeterministic(t *testing.T) {
	enterprise := testEnterprise(t, receivableRule())
	rule := &enterprise.Rules[0]

	late := receivableRow("1", "85", "NF-2", "20")
	late.date = "20/03/2024"
	early := receivableRow("2", "85", "NF-1", "10")
	early.date = "01/03/2024"
	undated := receivableRow("1", "85", "NF-3", "30")
	undated.date = "n/a"

	rows := []domain.Record{record(late), record(undated), record(early)}
	runner := newRunner(nil, nil, nil)

	first := runner.Evaluate(enterprise, rule, rows, nil)
	second := runner.Evaluate(enterprise, rule, rows, nil)

	require.Len(t, first.Ledger, 4)
	assert.Equal(t, first, second)

	got := make([]string, len(first.Ledger))
	for i, l := range first.Ledger {
		got[i] = fields(l)
	}
	assert.Equal(t, []string{
		"0002;01/03/24;1.1.9.001;C100;10.00;11;NF-1 Acme Ltda",
		"0001;01/03/24;85;2.1.9.002;10.00;11;NF-1 Acme Ltda",
		"0001;20/03/24;85;C100;20.00;11;NF-2 Acme Ltda",
		"0001;invalid date;85;C100;30.00;11;NF-3 Acme Ltda",
	}, got)
}

func TestRuleRunner_EvaluateSkips(t *testing.T) {
	rule := receivableRule()
	rule.Variants = rule.Variants[1:] // bank only
	enterprise := testEnterprise(t, rule)

	rows := []domain.Record{
		record(receivableRow("1", "999", "NF-1", "10")), // cash: no variant
		record(receivableRow("9", "85", "NF-2", "10")),  // unknown branch
		{"101"}, // short row
	}

	out := newRunner(nil, nil, nil).Evaluate(enterprise, &enterprise.Rules[0], rows, nil)

	assert.Empty(t, out.Ledger)
	assert.True(t, out.Empty())
	assert.Equal(t, 1, out.Stats.Skipped[string(usecase.SkipNoTemplate)])
	assert.Equal(t, 2, out.Stats.Skipped[string(usecase.SkipUnknownBranch)])
}

func TestRuleRunner_Publish(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		rule       func() domain.RuleModule
		out        usecase.RuleOutput
		setupMocks func(*mocks.MockLineEncoder, *mocks.MockExceptionWriter, *mocks.MockArtifactStore)
		wantKinds  []domain.ArtifactKind
		wantErr    bool
	}{
		{
			name: "ledger only",
			rule: receivableRule,
			out:  usecase.RuleOutput{Ledger: []domain.LedgerEntry{ledgerLine("01/01/2024", "11")}},
			setupMocks: func(enc *mocks.MockLineEncoder, exc *mocks.MockExceptionWriter, store *mocks.MockArtifactStore) {
				enc.EXPECT().Encode(gomock.Len(1), "").Return([]byte("line\r\n"))
				store.EXPECT().Save(ctx, domain.ArtifactLedger, "acme_receivables_lancamentos.txt", []byte("line\r\n")).
					Return(&domain.Artifact{ID: "a1", Kind: domain.ArtifactLedger}, nil)
			},
			wantKinds: []domain.ArtifactKind{domain.ArtifactLedger},
		},
		{
			name: "empty output with skip policy writes nothing",
			rule: receivableRule,
			setupMocks: func(enc *mocks.MockLineEncoder, exc *mocks.MockExceptionWriter, store *mocks.MockArtifactStore) {
				enc.EXPECT().Encode(gomock.Len(0), "").Return(nil)
			},
		},
		{
			name: "reconciliation writes placeholders and exceptions",
			rule: reconcileRule,
			out: usecase.RuleOutput{
				Unmatched: []domain.UnmatchedInvoiceRecord{{Document: "NF-999"}},
			},
			setupMocks: func(enc *mocks.MockLineEncoder, exc *mocks.MockExceptionWriter, store *mocks.MockArtifactStore) {
				enc.EXPECT().Encode(gomock.Len(0), "Nenhum lancamento gerado").Return([]byte("Nenhum lancamento gerado\r\n")).Times(2)
				exc.EXPECT().Write(gomock.Len(1)).Return([]byte("xlsx"), nil)
				store.EXPECT().Save(ctx, domain.ArtifactLedger, "acme_settlements_lancamentos.txt", gomock.Any()).
					Return(&domain.Artifact{ID: "a1", Kind: domain.ArtifactLedger}, nil)
				store.EXPECT().Save(ctx, domain.ArtifactFiscal, "acme_settlements_fiscal.txt", gomock.Any()).
					Return(&domain.Artifact{ID: "a2", Kind: domain.ArtifactFiscal}, nil)
				store.EXPECT().Save(ctx, domain.ArtifactExceptions, "acme_settlements_excecoes.xlsx", []byte("xlsx")).
					Return(&domain.Artifact{ID: "a3", Kind: domain.ArtifactExceptions}, nil)
			},
			wantKinds: []domain.ArtifactKind{domain.ArtifactLedger, domain.ArtifactFiscal, domain.ArtifactExceptions},
		},
		{
			name: "store failure",
			rule: receivableRule,
			out:  usecase.RuleOutput{Ledger: []domain.LedgerEntry{ledgerLine("01/01/2024", "11")}},
			setupMocks: func(enc *mocks.MockLineEncoder, exc *mocks.MockExceptionWriter, store *mocks.MockArtifactStore) {
				enc.EXPECT().Encode(gomock.Any(), "").Return([]byte("line\r\n"))
				store.EXPECT().Save(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("disk full"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			enc := mocks.NewMockLineEncoder(ctrl)
			exc := mocks.NewMockExceptionWriter(ctrl)
			store := mocks.NewMockArtifactStore(ctrl)
			tt.setupMocks(enc, exc, store)

			enterprise := testEnterprise(t, tt.rule())
			artifacts, err := newRunner(enc, exc, store).Publish(ctx, enterprise, &enterprise.Rules[0], tt.out)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			kinds := make([]domain.ArtifactKind, 0, len(artifacts))
			for _, a := range artifacts {
				kinds = append(kinds, a.Kind)
			}
			assert.Equal(t, len(tt.wantKinds), len(kinds))
			for i := range tt.wantKinds {
				assert.Equal(t, tt.wantKinds[i], kinds[i])
			}
		})
	}
}
