package formula

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// Primitive represents basic formula value types.
// types:
//   - float64: numeric values (integers are converted to float64)
//   - string: text values
//   - bool: boolean values (TRUE/FALSE)
//   - nil: empty/blank cells
//   - *FormulaError: error values (#DIV/0!, #VALUE!, etc.)
//   - *ValueArray: rectangular 2-D results (array literals, range results)
type Primitive = any

// ErrorCode represents standard spreadsheet error codes following
// SpreadsheetML conventions
type ErrorCode uint8

const (
	ErrorCodeNull        ErrorCode = 1 // #NULL! - no cells in common between ranges
	ErrorCodeDiv0        ErrorCode = 2 // #DIV/0! - division by zero
	ErrorCodeValue       ErrorCode = 3 // #VALUE! - wrong type of argument or operand
	ErrorCodeRef         ErrorCode = 4 // #REF! - invalid cell reference
	ErrorCodeName        ErrorCode = 5 // #NAME? - unrecognized function or name
	ErrorCodeNum         ErrorCode = 6 // #NUM! - invalid numeric argument
	ErrorCodeNA          ErrorCode = 7 // #N/A - value not available
	ErrorCodeGettingData ErrorCode = 8 // #GETTING_DATA - async data still loading
)

// ErrorMapper maps error codes to their literal spellings
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeNull:        "#NULL!",
	ErrorCodeDiv0:        "#DIV/0!",
	ErrorCodeValue:       "#VALUE!",
	ErrorCodeRef:         "#REF!",
	ErrorCodeName:        "#NAME?",
	ErrorCodeNum:         "#NUM!",
	ErrorCodeNA:          "#N/A",
	ErrorCodeGettingData: "#GETTING_DATA",
}

// errorLiterals is the closed set of error spellings the lexer accepts.
// unknown #-tokens are a lexical error, not coerced to #NAME?.
var errorLiterals = map[string]ErrorCode{
	"#NULL!":        ErrorCodeNull,
	"#DIV/0!":       ErrorCodeDiv0,
	"#VALUE!":       ErrorCodeValue,
	"#REF!":         ErrorCodeRef,
	"#NAME?":        ErrorCodeName,
	"#NUM!":         ErrorCodeNum,
	"#N/A":          ErrorCodeNA,
	"#GETTING_DATA": ErrorCodeGettingData,
}

// FormulaError is a sentinel error value. once past the lexer these are
// first-class values that flow through arithmetic and function composition
// like any other Primitive; they are never raised as Go errors out of Eval.
type FormulaError struct {
	Code    ErrorCode
	Message string
}

func (e *FormulaError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrorMapper[e.Code]
}

// Literal returns the sentinel spelling (#VALUE!, #REF!, ...) regardless of
// the attached message
func (e *FormulaError) Literal() string {
	return ErrorMapper[e.Code]
}

func NewFormulaError(code ErrorCode, message string) *FormulaError {
	if message == "" {
		message = ErrorMapper[code]
	}
	return &FormulaError{
		Code:    code,
		Message: message,
	}
}

// asError returns the error if value is a *FormulaError, nil otherwise
func asError(value Primitive) *FormulaError {
	if err, ok := value.(*FormulaError); ok {
		return err
	}
	return nil
}

// ValueArray is a rectangular 2-D result (rows x columns). arrays never
// nest; every element is a scalar Primitive.
type ValueArray struct {
	Rows [][]Primitive
}

// NewValueArray validates rectangularity before wrapping the rows. an
// empty row set or ragged rows are rejected.
func NewValueArray(rows [][]Primitive) (*ValueArray, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("array must have at least one row")
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("array is not rectangular: row %d has %d cells, expected %d", i+1, len(row), width)
		}
	}
	return &ValueArray{Rows: rows}, nil
}

// RowCount returns the number of rows
func (a *ValueArray) RowCount() int {
	return len(a.Rows)
}

// ColCount returns the number of columns
func (a *ValueArray) ColCount() int {
	if len(a.Rows) == 0 {
		return 0
	}
	return len(a.Rows[0])
}

// Values returns an iterator over all cells in row-major order
func (a *ValueArray) Values() iter.Seq[Primitive] {
	return func(yield func(Primitive) bool) {
		for _, row := range a.Rows {
			for _, value := range row {
				if !yield(value) {
					return
				}
			}
		}
	}
}

// toNumber converts value to number, returning ok=false if conversion fails
func toNumber(value Primitive) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return num, true
	case nil:
		return 0, true
	default:
		return 0, false
	}
}

// toString converts value to string using formula display conventions
func toString(value Primitive) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case *FormulaError:
		return v.Literal()
	default:
		return fmt.Sprint(value)
	}
}

// isTruthy checks if value is truthy
func isTruthy(value Primitive) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		return v != ""
	case nil:
		return false
	default:
		return true
	}
}

// typeRank orders values for comparison: error > text > number > boolean
// > blank
func typeRank(value Primitive) int {
	switch value.(type) {
	case *FormulaError:
		return 4
	case string:
		return 3
	case float64, int, int64:
		return 2
	case bool:
		return 1
	case nil:
		return 0
	default:
		return 0
	}
}

// compareValues compares two scalar values. returns -1 if left < right,
// 0 if equal, 1 if left > right. values of different types order by
// typeRank; string comparison is case-insensitive.
func compareValues(left, right Primitive) int {
	leftRank := typeRank(left)
	rightRank := typeRank(right)
	if leftRank != rightRank {
		if leftRank < rightRank {
			return -1
		}
		return 1
	}

	switch leftRank {
	case 3:
		leftStr := strings.ToLower(left.(string))
		rightStr := strings.ToLower(right.(string))
		return strings.Compare(leftStr, rightStr)
	case 2:
		leftNum, _ := toNumber(left)
		rightNum, _ := toNumber(right)
		if leftNum < rightNum {
			return -1
		} else if leftNum > rightNum {
			return 1
		}
		return 0
	case 1:
		leftBool := left.(bool)
		rightBool := right.(bool)
		if leftBool == rightBool {
			return 0
		} else if !leftBool {
			return -1
		}
		return 1
	default:
		return 0
	}
}
