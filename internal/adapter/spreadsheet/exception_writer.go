package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/iho/ledgerimport/internal/domain"
)

// ExceptionSheet is the name of the exception report sheet.
const ExceptionSheet = "Excecoes"

var exceptionHeader = []any{
	"Local", "Participante", "Documento", "Data", "Valor Bruto", "Valor Liquido", "Banco", "Observacao",
}

// ExceptionWriter renders unmatched invoices as an .xlsx workbook.
type ExceptionWriter struct{}

// NewExceptionWriter creates a new ExceptionWriter.
func NewExceptionWriter() *ExceptionWriter {
	return &ExceptionWriter{}
}

// Write implements usecase.ExceptionWriter. Amounts are numeric cells with a
// two-decimal format.
func (w *ExceptionWriter) Write(records []domain.UnmatchedInvoiceRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExceptionSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	amountFormat := "0.00"
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &amountFormat})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(ExceptionSheet, "A1", &exceptionHeader); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(ExceptionSheet, 1, 1, headerStyle); err != nil {
		return nil, err
	}

	for i, rec := range records {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		values := []any{
			rec.Location,
			rec.Counterparty,
			rec.Document,
			rec.Date.String(),
			rec.Gross.InexactFloat64(),
			rec.Net.InexactFloat64(),
			rec.Bank,
			rec.Note,
		}
		if err := f.SetSheetRow(ExceptionSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write exception row %d: %w", row, err)
		}
	}

	if len(records) > 0 {
		last := len(records) + 1
		if err := f.SetCellStyle(ExceptionSheet, "E2", fmt.Sprintf("F%d", last), amountStyle); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(ExceptionSheet, "A", "G", 16); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(ExceptionSheet, "H", "H", 60); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
