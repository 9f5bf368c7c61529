package jsonsql

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownDialect         = errors.New("jsonsql: unknown dialect")
	ErrUnknownTemplate        = errors.New("jsonsql: unknown template")
	ErrUnknownBlock           = errors.New("jsonsql: unknown block")
	ErrUnknownOperator        = errors.New("jsonsql: unknown condition operator")
	ErrUnknownLogicalOperator = errors.New("jsonsql: unknown logical operator")
	ErrUnknownModifier        = errors.New("jsonsql: unknown modifier")
	ErrUnsupportedValueType   = errors.New("jsonsql: unsupported value type")
	ErrUnsafeArrayValue       = errors.New("jsonsql: array value may only hold numbers and identifiers")
	ErrValidation             = errors.New("jsonsql: validation error")
	ErrDescriptorTooDeep      = errors.New("jsonsql: descriptor nesting too deep")
	ErrDuplicateColumn        = errors.New("jsonsql: duplicate column")
	ErrInvalidFieldLength     = errors.New("jsonsql: invalid field length")
	ErrUnknownFieldType       = errors.New("jsonsql: unknown field type")
	ErrDuplicatePrimaryKey    = errors.New("jsonsql: duplicate primary key")
	ErrDanglingForeignKey     = errors.New("jsonsql: foreign key references an undeclared field")
	ErrInvalidReferenceTable  = fmt.Errorf("%w: invalid reference table", ErrDanglingForeignKey)
	ErrInvalidOnDeleteAction  = errors.New("jsonsql: invalid on delete action")
	ErrMissingColumnName      = errors.New("jsonsql: column name is missing")
)

// ValidationError is returned when a descriptor does not satisfy the checks of
// the template it is rendered with.
type ValidationError struct {
	Template string
	Property string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("jsonsql: %s in `%s` template", e.Reason, e.Template)
	}
	return fmt.Sprintf("jsonsql: `%s` property %s in `%s` template", e.Property, e.Reason, e.Template)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationErrorf(template, property, format string, args ...any) error {
	return &ValidationError{Template: template, Property: property, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err was caused by a descriptor validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
