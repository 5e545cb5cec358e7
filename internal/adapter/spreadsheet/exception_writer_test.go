package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iho/ledgerimport/internal/domain"
)

func TestExceptionWriterWritesRecords(t *testing.T) {
	records := []domain.UnmatchedInvoiceRecord{
		{
			Location:     "0001",
			Counterparty: "Acme Ltda",
			Document:     "NF-999",
			Date:         domain.DeriveDate("15/03/2024"),
			Gross:        decimal.RequireFromString("150"),
			Net:          decimal.RequireFromString("148.5"),
			Bank:         "85",
			Note:         "documento nao encontrado no cadastro de titulos em aberto",
		},
	}

	data, err := NewExceptionWriter().Write(records)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ExceptionSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"Local", "Participante", "Documento", "Data", "Valor Bruto", "Valor Liquido", "Banco", "Observacao"}, rows[0])
	assert.Equal(t, []string{"0001", "Acme Ltda", "NF-999", "15/03/24", "150", "148.5", "85", "documento nao encontrado no cadastro de titulos em aberto"}, rows[1])
}

func TestExceptionWriterEmpty(t *testing.T) {
	data, err := NewExceptionWriter().Write(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ExceptionSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExceptionWriterIsDeterministic(t *testing.T) {
	records := []domain.UnmatchedInvoiceRecord{
		{Location: "0001", Document: "NF-1", Date: domain.DeriveDate("15/03/2024"), Gross: decimal.RequireFromString("10"), Bank: "85"},
		{Location: "0002", Document: "NF-2", Gross: decimal.RequireFromString("20.5"), Bank: "341"},
	}

	first, err := NewExceptionWriter().Write(records)
	require.NoError(t, err)
	second, err := NewExceptionWriter().Write(records)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
