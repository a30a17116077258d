package formula

import "fmt"

// LookupTable wraps a rectangular region for the lookup functions.
// construction validates shape once so the search loops stay simple.
type LookupTable struct {
	rows [][]Primitive
}

// NewLookupTable validates and wraps a table argument. only arrays
// qualify; a scalar table argument is a type error.
func NewLookupTable(value Primitive) (*LookupTable, error) {
	arr, ok := value.(*ValueArray)
	if !ok {
		return nil, fmt.Errorf("table argument must be a range or array")
	}
	if arr.RowCount() == 0 || arr.ColCount() == 0 {
		return nil, fmt.Errorf("table argument is empty")
	}
	return &LookupTable{rows: arr.Rows}, nil
}

func (t *LookupTable) rowCount() int { return len(t.rows) }
func (t *LookupTable) colCount() int { return len(t.rows[0]) }

// findInColumn returns the first row whose given column equals the key,
// or -1. matching follows comparison semantics, so text keys match
// case-insensitively.
func (t *LookupTable) findInColumn(col int, key Primitive) int {
	for i, row := range t.rows {
		if asError(row[col]) == nil && compareValues(row[col], key) == 0 {
			return i
		}
	}
	return -1
}

// findInRow returns the first column whose given row equals the key,
// or -1
func (t *LookupTable) findInRow(row int, key Primitive) int {
	for j, value := range t.rows[row] {
		if asError(value) == nil && compareValues(value, key) == 0 {
			return j
		}
	}
	return -1
}

func registerLookupFuncs(r *Registry) {
	r.mustRegister(&FunctionDef{
		Name: "VLOOKUP", Category: "lookup", MinArgs: 3, MaxArgs: 3,
		Eager: func(args []Primitive) (Primitive, error) {
			key := args[0]
			if err := asError(key); err != nil {
				return err, nil
			}
			table, err := NewLookupTable(args[1])
			if err != nil {
				return nil, err
			}
			col, err := requireInteger("VLOOKUP", args, 2)
			if err != nil {
				return nil, err
			}
			if col < 1 || col > table.colCount() {
				return nil, fmt.Errorf("VLOOKUP column index %d is outside the table width %d", col, table.colCount())
			}
			row := table.findInColumn(0, key)
			if row < 0 {
				return NewFormulaError(ErrorCodeNA, fmt.Sprintf("VLOOKUP key %s not found", toString(key))), nil
			}
			return table.rows[row][col-1], nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "HLOOKUP", Category: "lookup", MinArgs: 3, MaxArgs: 3,
		Eager: func(args []Primitive) (Primitive, error) {
			key := args[0]
			if err := asError(key); err != nil {
				return err, nil
			}
			table, err := NewLookupTable(args[1])
			if err != nil {
				return nil, err
			}
			row, err := requireInteger("HLOOKUP", args, 2)
			if err != nil {
				return nil, err
			}
			if row < 1 || row > table.rowCount() {
				return nil, fmt.Errorf("HLOOKUP row index %d is outside the table height %d", row, table.rowCount())
			}
			col := table.findInRow(0, key)
			if col < 0 {
				return NewFormulaError(ErrorCodeNA, fmt.Sprintf("HLOOKUP key %s not found", toString(key))), nil
			}
			return table.rows[row-1][col], nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "INDEX", Category: "lookup", MinArgs: 2, MaxArgs: 3,
		Eager: func(args []Primitive) (Primitive, error) {
			table, err := NewLookupTable(args[0])
			if err != nil {
				return nil, err
			}
			row, err := requireInteger("INDEX", args, 1)
			if err != nil {
				return nil, err
			}
			if row < 1 || row > table.rowCount() {
				return nil, fmt.Errorf("INDEX row %d is outside the table height %d", row, table.rowCount())
			}
			if len(args) == 2 {
				if table.colCount() == 1 {
					return table.rows[row-1][0], nil
				}
				// with no column argument a multi-column row comes back
				// as a 1 x N array
				cells := make([]Primitive, table.colCount())
				copy(cells, table.rows[row-1])
				return &ValueArray{Rows: [][]Primitive{cells}}, nil
			}
			col, err := requireInteger("INDEX", args, 2)
			if err != nil {
				return nil, err
			}
			if col < 1 || col > table.colCount() {
				return nil, fmt.Errorf("INDEX column %d is outside the table width %d", col, table.colCount())
			}
			return table.rows[row-1][col-1], nil
		},
	})
}
