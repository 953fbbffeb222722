// =============================================================================
// Journal CSV Converter - Journal Entries
// =============================================================================
//
// Entry is one balanced double-entry record; Table is the ordered list of
// entries that makes up a session's working copy. Every field can be read
// and written as the text that appears in the import file, which is what
// the response parser, the exporter and the edit endpoints all work with.
//
// =============================================================================

package journal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the voucher date format of the import file (YYYYMMDD).
const DateLayout = "20060102"

// Tax category codes.
const (
	TaxCategoryExempt  = 0
	TaxCategoryTaxable = 10
)

// amountPattern accepts plain decimal numbers only: no thousands
// separators, currency symbols or exponents.
var amountPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// Side is one half (debit or credit) of a journal entry.
type Side struct {
	DepartmentCode string
	DepartmentName string
	AccountCode    string `validate:"omitempty,numeric,min=3,max=4"`
	AccountName    string
	SubAccountCode string
	SubAccountName string
	TaxCategory    int             `validate:"oneof=0 10"`
	TaxCalcType    int             `validate:"oneof=0 1"`
	Amount         decimal.Decimal `validate:"gte=0"`
	TaxAmount      decimal.Decimal `validate:"gte=0"`
}

// Entry is one row of the journal import file.
type Entry struct {
	VoucherDate   time.Time
	VoucherNumber int
	Debit         Side
	Credit        Side
	Description   string
}

// Balanced reports whether the debit and credit amounts are equal.
func (e Entry) Balanced() bool {
	return e.Debit.Amount.Equal(e.Credit.Amount)
}

// Record returns the entry's fields in column order, formatted as they
// appear in the import file.
func (e Entry) Record() []string {
	record := make([]string, ColumnCount)
	for i := range record {
		record[i] = e.Field(ColumnID(i))
	}
	return record
}

// Field returns the text of a single column.
func (e Entry) Field(id ColumnID) string {
	switch id {
	case ColVoucherDate:
		if e.VoucherDate.IsZero() {
			return ""
		}
		return e.VoucherDate.Format(DateLayout)
	case ColVoucherNumber:
		return strconv.Itoa(e.VoucherNumber)
	case ColDescription:
		return e.Description
	}

	side, offset := e.side(id)
	if side == nil {
		return ""
	}
	switch offset {
	case 0:
		return side.DepartmentCode
	case 1:
		return side.DepartmentName
	case 2:
		return side.AccountCode
	case 3:
		return side.AccountName
	case 4:
		return side.SubAccountCode
	case 5:
		return side.SubAccountName
	case 6:
		return strconv.Itoa(side.TaxCategory)
	case 7:
		return strconv.Itoa(side.TaxCalcType)
	case 8:
		return side.Amount.String()
	case 9:
		return side.TaxAmount.String()
	}
	return ""
}

// SetField parses raw as the value of column id and stores it. Values are
// checked for shape only (dates, integers, plain numbers); nothing is
// rewritten to make it fit.
func (e *Entry) SetField(id ColumnID, raw string) error {
	value := strings.TrimSpace(raw)

	switch id {
	case ColVoucherDate:
		// A blank date is kept as the zero time, which Field writes back as
		// blank; the validator reports it.
		if value == "" {
			e.VoucherDate = time.Time{}
			return nil
		}
		date, err := time.Parse(DateLayout, value)
		if err != nil || len(value) != len(DateLayout) {
			return &FieldError{Column: id, Value: raw, Reason: "date must be YYYYMMDD"}
		}
		e.VoucherDate = date
		return nil
	case ColVoucherNumber:
		n, err := strconv.Atoi(value)
		if err != nil {
			return &FieldError{Column: id, Value: raw, Reason: "voucher number must be an integer"}
		}
		e.VoucherNumber = n
		return nil
	case ColDescription:
		e.Description = raw
		return nil
	}

	side, offset := e.side(id)
	if side == nil {
		return &FieldError{Column: id, Value: raw, Reason: "unknown column"}
	}

	switch offset {
	case 0:
		side.DepartmentCode = value
	case 1:
		side.DepartmentName = value
	case 2:
		side.AccountCode = value
	case 3:
		side.AccountName = value
	case 4:
		side.SubAccountCode = value
	case 5:
		side.SubAccountName = value
	case 6, 7:
		code := 0
		if value != "" {
			n, err := strconv.Atoi(value)
			if err != nil {
				return &FieldError{Column: id, Value: raw, Reason: "code must be an integer"}
			}
			code = n
		}
		if offset == 6 {
			side.TaxCategory = code
		} else {
			side.TaxCalcType = code
		}
	case 8:
		amount, err := ParseAmount(value)
		if err != nil {
			return &FieldError{Column: id, Value: raw, Reason: err.Error()}
		}
		side.Amount = amount
	case 9:
		if value == "" {
			side.TaxAmount = decimal.Zero
			return nil
		}
		amount, err := ParseAmount(value)
		if err != nil {
			return &FieldError{Column: id, Value: raw, Reason: err.Error()}
		}
		side.TaxAmount = amount
	}
	return nil
}

// side maps a side-specific column to its Side and the field's offset
// within the side.
func (e *Entry) side(id ColumnID) (*Side, int) {
	switch {
	case id >= ColDebitDepartmentCode && id <= ColDebitTaxAmount:
		return &e.Debit, int(id - ColDebitDepartmentCode)
	case id >= ColCreditDepartmentCode && id <= ColCreditTaxAmount:
		return &e.Credit, int(id - ColCreditDepartmentCode)
	}
	return nil, -1
}

// ParseAmount parses a plain decimal amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	if !amountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("amount %q is not a plain number", s)
	}
	return decimal.NewFromString(s)
}

// FieldError reports a value that does not fit its column.
type FieldError struct {
	Column ColumnID
	Value  string
	Reason string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("column %s: %s (value: %q)", e.Column.Name(), e.Reason, e.Value)
}

// =============================================================================
// TABLE
// =============================================================================

// Table is an ordered list of journal entries.
type Table []Entry

// Clone returns a copy of the table that shares no storage with t.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// Totals summarises a table the way the accounting product shows a batch.
type Totals struct {
	Entries int             `json:"entries"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
}

// Balanced reports whether the debit and credit totals match.
func (t Totals) Balanced() bool {
	return t.Debit.Equal(t.Credit)
}

// Totals returns the entry count and the debit and credit totals.
func (t Table) Totals() Totals {
	totals := Totals{Entries: len(t), Debit: decimal.Zero, Credit: decimal.Zero}
	for _, e := range t {
		totals.Debit = totals.Debit.Add(e.Debit.Amount)
		totals.Credit = totals.Credit.Add(e.Credit.Amount)
	}
	return totals
}

// Records returns the header row followed by one record per entry.
func (t Table) Records() [][]string {
	records := make([][]string, 0, len(t)+1)
	records = append(records, Header())
	for _, e := range t {
		records = append(records, e.Record())
	}
	return records
}
