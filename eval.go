package formula

import (
	"math"
)

// Resolver is the seam between the engine and workbook storage. the
// evaluator has no knowledge of where values live; hosts inject an
// implementation and the engine stays free of I/O. implementations must
// return *FormulaError values (typically #REF!) rather than panicking
// when a sheet or cell cannot be found, scalars for single cells, and
// *ValueArray for ranges.
type Resolver interface {
	ResolveCell(sheet string, addr CellAddress) Primitive
	ResolveRange(rng CellRange) Primitive
}

// EvalContext supplies everything evaluation needs: the data resolver
// and the function registry. contexts are cheap and carry no state of
// their own; the same AST can be evaluated against many contexts.
type EvalContext struct {
	Resolver  Resolver
	Functions *Registry
}

// Evaluate walks the AST and produces a scalar, a *ValueArray, or a
// *FormulaError. semantic failures are values, never Go errors: a
// runtime #REF! flows out as data, and structural problems cannot occur
// here because parsing already rejected them.
func Evaluate(node ASTNode, ctx *EvalContext) Primitive {
	if node == nil {
		return NewFormulaError(ErrorCodeValue, "nothing to evaluate")
	}
	return node.Eval(ctx)
}

func (n *LiteralNode) Eval(ctx *EvalContext) Primitive {
	return n.Value
}

// Eval decides the fate of a bare identifier: a name that matches a
// registered function was almost certainly a mistyped call, so it
// surfaces as #NAME?; anything else keeps the legacy behavior of
// evaluating to its own text.
func (n *NameNode) Eval(ctx *EvalContext) Primitive {
	if ctx != nil && ctx.Functions != nil {
		if _, ok := ctx.Functions.Lookup(n.Name); ok {
			return NewFormulaError(ErrorCodeName, "unknown name: "+n.Name)
		}
	}
	return n.Name
}

func (n *ReferenceNode) Eval(ctx *EvalContext) Primitive {
	if ctx == nil || ctx.Resolver == nil {
		return NewFormulaError(ErrorCodeRef, "no resolver for reference "+n.ToString())
	}
	return ctx.Resolver.ResolveCell(n.Sheet, n.Address)
}

func (n *RangeNode) Eval(ctx *EvalContext) Primitive {
	// sheet-span (3-D) ranges are parse-only until their evaluation
	// contract is settled
	if n.Range.EndSheet != "" && n.Range.EndSheet != n.Range.Sheet {
		return NewFormulaError(ErrorCodeRef, "sheet-span ranges cannot be evaluated")
	}
	if ctx == nil || ctx.Resolver == nil {
		return NewFormulaError(ErrorCodeRef, "no resolver for range "+n.ToString())
	}
	return ctx.Resolver.ResolveRange(n.Range)
}

func (n *ArrayNode) Eval(ctx *EvalContext) Primitive {
	rows := make([][]Primitive, len(n.Rows))
	for i, row := range n.Rows {
		cells := make([]Primitive, len(row))
		for j, cell := range row {
			value := cell.Eval(ctx)
			if _, ok := value.(*ValueArray); ok {
				// the parser rejects nested arrays; a function result
				// inside a cell can still produce one
				return NewFormulaError(ErrorCodeValue, "array cell produced a nested array")
			}
			cells[j] = value
		}
		rows[i] = cells
	}
	return &ValueArray{Rows: rows}
}

func (n *UnaryNode) Eval(ctx *EvalContext) Primitive {
	value := n.Operand.Eval(ctx)
	return mapScalar(value, func(v Primitive) Primitive {
		if err := asError(v); err != nil {
			return err
		}
		num, ok := toNumber(v)
		if !ok {
			return NewFormulaError(ErrorCodeValue, "unary operand is not numeric")
		}
		if n.Op == UnaryMinus {
			return -num
		}
		return num
	})
}

func (n *BinaryNode) Eval(ctx *EvalContext) Primitive {
	left := n.Left.Eval(ctx)
	right := n.Right.Eval(ctx)
	return broadcast(left, right, func(a, b Primitive) Primitive {
		return applyArithmetic(n.Op, a, b)
	})
}

func (n *CompareNode) Eval(ctx *EvalContext) Primitive {
	left := n.Left.Eval(ctx)
	right := n.Right.Eval(ctx)
	return broadcast(left, right, func(a, b Primitive) Primitive {
		return applyComparison(n.Op, a, b)
	})
}

func (n *FunctionNode) Eval(ctx *EvalContext) Primitive {
	if ctx == nil || ctx.Functions == nil {
		return NewFormulaError(ErrorCodeName, "no function registry")
	}
	def, ok := ctx.Functions.Lookup(n.Name)
	if !ok {
		return NewFormulaError(ErrorCodeName, "unknown function: "+n.Name)
	}
	return def.call(n.Args, ctx)
}

// applyArithmetic applies one arithmetic operator to two scalars. the
// first error encountered left-to-right propagates unchanged.
func applyArithmetic(op BinaryOp, left, right Primitive) Primitive {
	if err := asError(left); err != nil {
		return err
	}
	if err := asError(right); err != nil {
		return err
	}

	leftNum, ok := toNumber(left)
	if !ok {
		return NewFormulaError(ErrorCodeValue, "operand is not numeric")
	}
	rightNum, ok := toNumber(right)
	if !ok {
		return NewFormulaError(ErrorCodeValue, "operand is not numeric")
	}

	switch op {
	case OpAdd:
		return leftNum + rightNum
	case OpSubtract:
		return leftNum - rightNum
	case OpMultiply:
		return leftNum * rightNum
	case OpDivide:
		if rightNum == 0 {
			return NewFormulaError(ErrorCodeDiv0, "division by zero")
		}
		return leftNum / rightNum
	case OpPower:
		return math.Pow(leftNum, rightNum)
	default:
		return NewFormulaError(ErrorCodeValue, "unknown operator")
	}
}

// applyComparison applies one comparison operator to two scalars
func applyComparison(op CompareOp, left, right Primitive) Primitive {
	if err := asError(left); err != nil {
		return err
	}
	if err := asError(right); err != nil {
		return err
	}

	cmp := compareValues(left, right)
	switch op {
	case CmpEqual:
		return cmp == 0
	case CmpNotEqual:
		return cmp != 0
	case CmpLess:
		return cmp < 0
	case CmpLessEqual:
		return cmp <= 0
	case CmpGreater:
		return cmp > 0
	case CmpGreaterEqual:
		return cmp >= 0
	default:
		return NewFormulaError(ErrorCodeValue, "unknown comparator")
	}
}

// mapScalar applies fn to a scalar, or element-wise over an array
func mapScalar(value Primitive, fn func(Primitive) Primitive) Primitive {
	arr, ok := value.(*ValueArray)
	if !ok {
		return fn(value)
	}
	rows := make([][]Primitive, arr.RowCount())
	for i, row := range arr.Rows {
		cells := make([]Primitive, len(row))
		for j, cell := range row {
			cells[j] = fn(cell)
		}
		rows[i] = cells
	}
	return &ValueArray{Rows: rows}
}

// broadcast combines two operands element-wise. a scalar broadcasts
// against every element of an array; two arrays must share a shape.
func broadcast(left, right Primitive, fn func(a, b Primitive) Primitive) Primitive {
	leftArr, leftIsArr := left.(*ValueArray)
	rightArr, rightIsArr := right.(*ValueArray)

	switch {
	case !leftIsArr && !rightIsArr:
		return fn(left, right)

	case leftIsArr && !rightIsArr:
		return mapScalar(leftArr, func(v Primitive) Primitive { return fn(v, right) })

	case !leftIsArr && rightIsArr:
		return mapScalar(rightArr, func(v Primitive) Primitive { return fn(left, v) })

	default:
		if leftArr.RowCount() != rightArr.RowCount() || leftArr.ColCount() != rightArr.ColCount() {
			return NewFormulaError(ErrorCodeValue, "array operands have mismatched dimensions")
		}
		rows := make([][]Primitive, leftArr.RowCount())
		for i := range leftArr.Rows {
			cells := make([]Primitive, len(leftArr.Rows[i]))
			for j := range leftArr.Rows[i] {
				cells[j] = fn(leftArr.Rows[i][j], rightArr.Rows[i][j])
			}
			rows[i] = cells
		}
		return &ValueArray{Rows: rows}
	}
}
