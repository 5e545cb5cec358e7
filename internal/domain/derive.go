package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvalidDate is rendered wherever a row carries no usable date.
const InvalidDate = "invalid date"

// LedgerDateLayout is the dd/mm/yy layout used by both export formats.
const LedgerDateLayout = "02/01/06"

var dateLayouts = []string{
	"02/01/2006",
	"02/01/06",
	"2/1/2006",
	"2/1/06",
	"2006-01-02",
	"01-02-06", // excelize default for date-formatted cells
	"02.01.2006",
}

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Date is a derived calendar date. The zero value is invalid.
type Date struct {
	Time  time.Time
	Valid bool
}

// String renders the date as dd/mm/yy, or the InvalidDate sentinel.
func (d Date) String() string {
	if !d.Valid {
		return InvalidDate
	}
	return d.Time.Format(LedgerDateLayout)
}

// ExtractDate drops the time-of-day portion of a date-like field.
func ExtractDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, ' '); i >= 0 {
		return raw[:i]
	}
	return raw
}

// DeriveDate extracts and parses a date-like field. It never fails: an
// absent or unreadable value yields an invalid Date.
func DeriveDate(raw string) Date {
	s := ExtractDate(raw)
	if s == "" {
		return Date{}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t, Valid: true}
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 {
		return Date{Time: excelEpoch.AddDate(0, 0, int(serial)), Valid: true}
	}

	return Date{}
}

// ParseLedgerDate parses a dd/mm/yy field back into a time.
func ParseLedgerDate(s string) (time.Time, bool) {
	t, err := time.Parse(LedgerDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseAmount coerces a monetary cell into a two-decimal value. Both
// "1.234,56" and "1,234.56" are accepted; the last separator is taken as the
// decimal mark. Missing or non-numeric input yields zero.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return decimal.Zero
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimPrefix(s, "-")
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot > lastComma:
		s = strings.ReplaceAll(s, ",", "")
		if strings.Count(s, ".") > 1 {
			i := strings.LastIndex(s, ".")
			s = strings.ReplaceAll(s[:i], ".", "") + s[i:]
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if neg {
		d = d.Neg()
	}

	return d.Round(2)
}

// FormatAmount renders a value with exactly two decimals and a dot separator.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatAmountComma renders a value with exactly two decimals and a comma
// separator. Only the fiscal export and flagged ledger lines use it.
func FormatAmountComma(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

// DerivedRow carries the normalized values every template reads from.
type DerivedRow struct {
	TransactionRow

	Date         Date
	Issue        Date
	Counterparty string
	DocumentText string
	GrossValue   decimal.Decimal
	NetValue     decimal.Decimal
	DiscountVal  decimal.Decimal
	Interest     decimal.Decimal
	InterestRaw  decimal.Decimal
	FineValue    decimal.Decimal
	FeeValue     decimal.Decimal
}

// Derive computes the normalized values of a row. It has no side effects.
func Derive(row TransactionRow) DerivedRow {
	interest1 := ParseAmount(row.Interest1)
	interest2 := ParseAmount(row.Interest2)

	return DerivedRow{
		TransactionRow: row,
		Date:           DeriveDate(row.PostingDate),
		Issue:          DeriveDate(row.IssueDate),
		Counterparty:   NormalizeText(row.CounterpartyName),
		DocumentText:   NormalizeText(row.Document),
		GrossValue:     ParseAmount(row.Gross),
		NetValue:       ParseAmount(row.Net),
		DiscountVal:    ParseAmount(row.Discount),
		Interest:       interest1.Add(interest2),
		InterestRaw:    interest1,
		FineValue:      ParseAmount(row.Fine),
		FeeValue:       ParseAmount(row.Fee),
	}
}

// Amount returns the value a template names as its amount source.
func (r DerivedRow) Amount(src AmountSource) decimal.Decimal {
	switch src {
	case AmountGross:
		return r.GrossValue
	case AmountNet:
		return r.NetValue
	case AmountDiscount:
		return r.DiscountVal
	case AmountInterest:
		return r.Interest
	case AmountInterestRaw:
		return r.InterestRaw
	case AmountFine:
		return r.FineValue
	case AmountFee:
		return r.FeeValue
	default:
		return decimal.Zero
	}
}
