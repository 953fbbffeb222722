// =============================================================================
// Journal CSV Converter - Journal Column Layout
// =============================================================================
//
// The accounting product's journal import format is a flat layout: voucher
// date and number, a 10-field debit side, an identically shaped credit side,
// and a free-text description. Column order is fixed and the header names
// below are the literal names the importer expects.
//
// =============================================================================

package journal

import "strings"

// ColumnID identifies a journal column by position.
type ColumnID int

const (
	ColVoucherDate ColumnID = iota
	ColVoucherNumber
	ColDebitDepartmentCode
	ColDebitDepartmentName
	ColDebitAccountCode
	ColDebitAccountName
	ColDebitSubAccountCode
	ColDebitSubAccountName
	ColDebitTaxCategory
	ColDebitTaxCalcType
	ColDebitAmount
	ColDebitTaxAmount
	ColCreditDepartmentCode
	ColCreditDepartmentName
	ColCreditAccountCode
	ColCreditAccountName
	ColCreditSubAccountCode
	ColCreditSubAccountName
	ColCreditTaxCategory
	ColCreditTaxCalcType
	ColCreditAmount
	ColCreditTaxAmount
	ColDescription
)

// ColumnCount is the number of columns in the journal import format.
const ColumnCount = 23

// Column describes a single journal column.
type Column struct {
	ID ColumnID

	// Name is the header the accounting product expects.
	Name string

	// Key is the snake_case alias accepted when reading model output.
	Key string

	// Rule is the formatting rule stated to the model for this column.
	Rule string
}

var columns = [ColumnCount]Column{
	{ColVoucherDate, "伝票日付", "voucher_date", "YYYYMMDD形式"},
	{ColVoucherNumber, "伝票番号", "voucher_number", "連番"},
	{ColDebitDepartmentCode, "借方部門コード", "debit_department_code", "空欄でOK"},
	{ColDebitDepartmentName, "借方部門名", "debit_department_name", "空欄でOK"},
	{ColDebitAccountCode, "借方科目コード", "debit_account_code", "数字3-4桁"},
	{ColDebitAccountName, "借方科目名", "debit_account_name", "科目名"},
	{ColDebitSubAccountCode, "借方補助コード", "debit_sub_account_code", "空欄でOK"},
	{ColDebitSubAccountName, "借方補助名", "debit_sub_account_name", "空欄でOK"},
	{ColDebitTaxCategory, "借方税区分", "debit_tax_category", "0=対象外、10=課税売上"},
	{ColDebitTaxCalcType, "借方税計算区分", "debit_tax_calc_type", "0=税込、1=税抜"},
	{ColDebitAmount, "借方金額", "debit_amount", "数値のみ"},
	{ColDebitTaxAmount, "借方税額", "debit_tax_amount", "数値のみ"},
	{ColCreditDepartmentCode, "貸方部門コード", "credit_department_code", "空欄でOK"},
	{ColCreditDepartmentName, "貸方部門名", "credit_department_name", "空欄でOK"},
	{ColCreditAccountCode, "貸方科目コード", "credit_account_code", "数字3-4桁"},
	{ColCreditAccountName, "貸方科目名", "credit_account_name", "科目名"},
	{ColCreditSubAccountCode, "貸方補助コード", "credit_sub_account_code", "空欄でOK"},
	{ColCreditSubAccountName, "貸方補助名", "credit_sub_account_name", "空欄でOK"},
	{ColCreditTaxCategory, "貸方税区分", "credit_tax_category", "0=対象外、10=課税売上"},
	{ColCreditTaxCalcType, "貸方税計算区分", "credit_tax_calc_type", "0=税込、1=税抜"},
	{ColCreditAmount, "貸方金額", "credit_amount", "数値のみ"},
	{ColCreditTaxAmount, "貸方税額", "credit_tax_amount", "数値のみ"},
	{ColDescription, "摘要", "description", "取引内容の説明"},
}

var columnIndex = func() map[string]ColumnID {
	idx := make(map[string]ColumnID, ColumnCount*2)
	for _, c := range columns {
		idx[c.Name] = c.ID
		idx[c.Key] = c.ID
	}
	return idx
}()

// Columns returns the journal columns in import order.
func Columns() []Column {
	out := make([]Column, ColumnCount)
	copy(out, columns[:])
	return out
}

// Header returns the header row expected by the accounting product.
func Header() []string {
	header := make([]string, ColumnCount)
	for i, c := range columns {
		header[i] = c.Name
	}
	return header
}

// LookupColumn resolves a header cell to a column. Both the importer's
// header names and the snake_case keys are accepted; surrounding whitespace
// and a UTF-8 byte order mark are ignored.
func LookupColumn(name string) (ColumnID, bool) {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.TrimSpace(name)
	if id, ok := columnIndex[name]; ok {
		return id, true
	}
	id, ok := columnIndex[strings.ToLower(name)]
	return id, ok
}

// Valid reports whether id names a journal column.
func (id ColumnID) Valid() bool {
	return id >= 0 && int(id) < ColumnCount
}

// Name returns the importer header name for the column.
func (id ColumnID) Name() string {
	if !id.Valid() {
		return ""
	}
	return columns[id].Name
}

// Key returns the snake_case alias for the column.
func (id ColumnID) Key() string {
	if !id.Valid() {
		return ""
	}
	return columns[id].Key
}

// String implements fmt.Stringer.
func (id ColumnID) String() string {
	return id.Key()
}
