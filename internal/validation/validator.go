// =============================================================================
// Journal CSV Converter - Validation Engine
// =============================================================================
//
// Validation runs after a completion has been parsed into journal entries.
// It never changes an entry: findings are reported so that the user can fix
// them in the edit view before exporting.
//
// SEVERITY:
//   - "error":   the importer would reject or misbook the entry
//                (unbalanced amounts, negative amounts, missing date)
//   - "warning": the entry imports but probably not as intended
//                (account code shape, unknown tax codes, zero amounts)
//
// Field rules come from the validate struct tags on journal.Side and are
// evaluated with go-playground/validator. Cross-field rules (balance, tax
// amount not exceeding the amount) are checked here.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ginjaninja78/journal-csv-converter/internal/journal"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single finding.
type ValidationError struct {
	Severity string `json:"severity"`

	// Row is the 0-based index of the entry in the table.
	Row int `json:"row"`

	// Field is the column header, or empty for entry-level findings.
	Field string `json:"field,omitempty"`

	Value   string `json:"value,omitempty"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] row %d: %s", strings.ToUpper(e.Severity), e.Row, e.Message)
	}
	return fmt.Sprintf("[%s] row %d, field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Row,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no findings of error severity.
	IsValid bool `json:"is_valid"`

	Errors       []*ValidationError `json:"errors"`
	ErrorCount   int                `json:"error_count"`
	WarningCount int                `json:"warning_count"`

	EntriesValidated int `json:"entries_validated"`
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors makes any warning invalidate the result.
	TreatWarningsAsErrors bool
}

// Validator checks journal entries.
type Validator struct {
	validate *validator.Validate
	options  ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return NewValidatorWithOptions(ValidationOptions{})
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	v := validator.New()
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	return &Validator{validate: v, options: options}
}

// decimalValue lets numeric tags such as gte apply to decimal amounts.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// Validate checks every entry with default options.
func Validate(table journal.Table) *ValidationResult {
	return NewValidator().ValidateAll(table)
}

// ValidateAll checks every entry and returns a detailed result.
func (v *Validator) ValidateAll(table journal.Table) *ValidationResult {
	result := &ValidationResult{
		IsValid:          true,
		Errors:           make([]*ValidationError, 0),
		EntriesValidated: len(table),
	}

	for i := range table {
		for _, finding := range v.ValidateEntry(i, table[i]) {
			result.Errors = append(result.Errors, finding)
			if finding.Severity == SeverityError {
				result.ErrorCount++
				result.IsValid = false
				continue
			}
			result.WarningCount++
			if v.options.TreatWarningsAsErrors {
				result.IsValid = false
			}
		}
	}
	return result
}

// ValidateEntry checks a single entry. row is only used for reporting.
func (v *Validator) ValidateEntry(row int, entry journal.Entry) []*ValidationError {
	var findings []*ValidationError

	if entry.VoucherDate.IsZero() {
		findings = append(findings, &ValidationError{
			Severity: SeverityError,
			Row:      row,
			Field:    journal.ColVoucherDate.Name(),
			Rule:     "required",
			Message:  "voucher date is missing",
		})
	}
	if entry.VoucherNumber <= 0 {
		findings = append(findings, &ValidationError{
			Severity: SeverityWarning,
			Row:      row,
			Field:    journal.ColVoucherNumber.Name(),
			Value:    entry.Field(journal.ColVoucherNumber),
			Rule:     "gt=0",
			Message:  "voucher number should be a positive sequence number",
		})
	}

	findings = append(findings, v.fieldFindings(row, entry)...)
	findings = append(findings, sideFindings(row, entry, entry.Debit, journal.ColDebitAccountName, journal.ColDebitAmount, journal.ColDebitTaxAmount)...)
	findings = append(findings, sideFindings(row, entry, entry.Credit, journal.ColCreditAccountName, journal.ColCreditAmount, journal.ColCreditTaxAmount)...)

	if !entry.Balanced() {
		findings = append(findings, &ValidationError{
			Severity: SeverityError,
			Row:      row,
			Rule:     "balanced",
			Message: fmt.Sprintf("debit amount %s does not equal credit amount %s",
				entry.Debit.Amount.String(), entry.Credit.Amount.String()),
		})
	}
	return findings
}

// fieldFindings translates struct tag failures into findings.
func (v *Validator) fieldFindings(row int, entry journal.Entry) []*ValidationError {
	err := v.validate.Struct(entry)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []*ValidationError{{
			Severity: SeverityError,
			Row:      row,
			Rule:     "internal",
			Message:  err.Error(),
		}}
	}

	findings := make([]*ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		id, ok := columnForNamespace(fe.StructNamespace())
		if !ok {
			continue
		}
		severity := SeverityWarning
		if fe.Tag() == "gte" {
			severity = SeverityError
		}
		findings = append(findings, &ValidationError{
			Severity: severity,
			Row:      row,
			Field:    id.Name(),
			Value:    entry.Field(id),
			Rule:     ruleString(fe),
			Message:  tagMessage(fe),
		})
	}
	return findings
}

// sideFindings checks rules that relate fields within one side.
func sideFindings(row int, entry journal.Entry, side journal.Side, nameCol, amountCol, taxCol journal.ColumnID) []*ValidationError {
	var findings []*ValidationError

	if strings.TrimSpace(side.AccountName) == "" {
		findings = append(findings, &ValidationError{
			Severity: SeverityWarning,
			Row:      row,
			Field:    nameCol.Name(),
			Rule:     "required",
			Message:  "account name is empty",
		})
	}
	if side.Amount.IsZero() {
		findings = append(findings, &ValidationError{
			Severity: SeverityWarning,
			Row:      row,
			Field:    amountCol.Name(),
			Value:    entry.Field(amountCol),
			Rule:     "gt=0",
			Message:  "amount is zero",
		})
	}
	if side.TaxAmount.GreaterThan(side.Amount) && side.Amount.IsPositive() {
		findings = append(findings, &ValidationError{
			Severity: SeverityWarning,
			Row:      row,
			Field:    taxCol.Name(),
			Value:    entry.Field(taxCol),
			Rule:     "ltefield=" + amountCol.Key(),
			Message:  "tax amount exceeds the amount",
		})
	}
	return findings
}

var sideFieldOffsets = map[string]journal.ColumnID{
	"DepartmentCode": 0,
	"DepartmentName": 1,
	"AccountCode":    2,
	"AccountName":    3,
	"SubAccountCode": 4,
	"SubAccountName": 5,
	"TaxCategory":    6,
	"TaxCalcType":    7,
	"Amount":         8,
	"TaxAmount":      9,
}

// columnForNamespace maps "Entry.Debit.AccountCode" to its column.
func columnForNamespace(ns string) (journal.ColumnID, bool) {
	parts := strings.Split(ns, ".")
	if len(parts) != 3 {
		return 0, false
	}
	offset, ok := sideFieldOffsets[parts[2]]
	if !ok {
		return 0, false
	}
	switch parts[1] {
	case "Debit":
		return journal.ColDebitDepartmentCode + offset, true
	case "Credit":
		return journal.ColCreditDepartmentCode + offset, true
	}
	return 0, false
}

func ruleString(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "numeric":
		return "code must contain digits only"
	case "min", "max":
		return "account code must be 3 to 4 digits"
	case "oneof":
		return fmt.Sprintf("value must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return "amount must not be negative"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
