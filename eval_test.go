package formula

import (
	"fmt"
	"testing"
)

// gridResolver is a test resolver backed by a map of cell values per
// sheet. the empty sheet name addresses the default grid.
type gridResolver struct {
	cells map[string]map[CellAddress]Primitive
}

func newGridResolver() *gridResolver {
	return &gridResolver{cells: make(map[string]map[CellAddress]Primitive)}
}

func (g *gridResolver) set(sheet, label string, value Primitive) {
	ref, err := ParseRefLabel(label)
	if err != nil {
		panic(err)
	}
	addr := CellAddress{Col: ref.Address.Col, Row: ref.Address.Row}
	if g.cells[sheet] == nil {
		g.cells[sheet] = make(map[CellAddress]Primitive)
	}
	g.cells[sheet][addr] = value
}

func (g *gridResolver) ResolveCell(sheet string, addr CellAddress) Primitive {
	key := CellAddress{Col: addr.Col, Row: addr.Row}
	return g.cells[sheet][key]
}

func (g *gridResolver) ResolveRange(rng CellRange) Primitive {
	rows := make([][]Primitive, 0, rng.End.Row-rng.Start.Row+1)
	for row := rng.Start.Row; row <= rng.End.Row; row++ {
		cells := make([]Primitive, 0, rng.End.Col-rng.Start.Col+1)
		for col := rng.Start.Col; col <= rng.End.Col; col++ {
			cells = append(cells, g.ResolveCell(rng.Sheet, CellAddress{Col: col, Row: row}))
		}
		rows = append(rows, cells)
	}
	return &ValueArray{Rows: rows}
}

func testContext(resolver Resolver) *EvalContext {
	return &EvalContext{Resolver: resolver, Functions: DefaultRegistry()}
}

// evalText parses and evaluates a formula against a context
func evalText(t *testing.T, ctx *EvalContext, text string) Primitive {
	t.Helper()
	node, err := ParseFormula(text)
	if err != nil {
		t.Fatalf("ParseFormula(%q) failed: %v", text, err)
	}
	return Evaluate(node, ctx)
}

func assertNumber(t *testing.T, got Primitive, want float64) {
	t.Helper()
	num, ok := got.(float64)
	if !ok {
		t.Fatalf("got %T (%v), want number %v", got, got, want)
	}
	if num != want {
		t.Errorf("got %v, want %v", num, want)
	}
}

func assertErrorCode(t *testing.T, got Primitive, want ErrorCode) {
	t.Helper()
	ferr := asError(got)
	if ferr == nil {
		t.Fatalf("got %T (%v), want %s", got, got, ErrorMapper[want])
	}
	if ferr.Code != want {
		t.Errorf("got %s (%s), want %s", ferr.Literal(), ferr.Message, ErrorMapper[want])
	}
}

func TestEvalArithmetic(t *testing.T) {
	ctx := testContext(nil)
	tests := []struct {
		text string
		want float64
	}{
		{"1+2", 3},
		{"10-4", 6},
		{"6*7", 42},
		{"10/4", 2.5},
		{"2^10", 1024},
		{"2^3^2", 64},
		{"-5+3", -2},
		{"--5", 5},
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{`"3"+4`, 7},
		{"TRUE+1", 2},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assertNumber(t, evalText(t, ctx, tt.text), tt.want)
		})
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	ctx := testContext(nil)
	assertErrorCode(t, evalText(t, ctx, "1/0"), ErrorCodeDiv0)
	assertErrorCode(t, evalText(t, ctx, "1/(2-2)"), ErrorCodeDiv0)
}

func TestEvalTypeErrors(t *testing.T) {
	ctx := testContext(nil)
	assertErrorCode(t, evalText(t, ctx, `"abc"+1`), ErrorCodeValue)
	assertErrorCode(t, evalText(t, ctx, `-"abc"`), ErrorCodeValue)
}

func TestEvalErrorPropagation(t *testing.T) {
	ctx := testContext(nil)

	// errors flow through arithmetic unchanged
	assertErrorCode(t, evalText(t, ctx, "#REF!+1"), ErrorCodeRef)
	assertErrorCode(t, evalText(t, ctx, "1+#NUM!"), ErrorCodeNum)

	// the left operand's error wins
	assertErrorCode(t, evalText(t, ctx, "#REF!+#NUM!"), ErrorCodeRef)

	// comparisons propagate errors rather than ordering them
	assertErrorCode(t, evalText(t, ctx, "#N/A=1"), ErrorCodeNA)
}

func TestEvalComparisons(t *testing.T) {
	ctx := testContext(nil)
	tests := []struct {
		text string
		want bool
	}{
		{"1=1", true},
		{"1<>1", false},
		{"1<2", true},
		{"2<=2", true},
		{"3>2", true},
		{"2>=3", false},
		{`"abc"="ABC"`, true},
		{`"a"<"b"`, true},
		// text always compares above numbers
		{`"1"<2`, false},
		{`"1">2`, true},
		// booleans compare below numbers
		{"TRUE>100", false},
		{"FALSE<0", true},
		{"TRUE>FALSE", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := evalText(t, ctx, tt.text)
			b, ok := got.(bool)
			if !ok {
				t.Fatalf("got %T (%v), want bool", got, got)
			}
			if b != tt.want {
				t.Errorf("got %v, want %v", b, tt.want)
			}
		})
	}
}

func TestEvalReferences(t *testing.T) {
	grid := newGridResolver()
	grid.set("", "A1", 10.0)
	grid.set("", "A2", 20.0)
	grid.set("", "B1", "text")
	grid.set("Data", "C3", 7.0)
	ctx := testContext(grid)

	assertNumber(t, evalText(t, ctx, "A1+A2"), 30)
	assertNumber(t, evalText(t, ctx, "Data!C3*2"), 14)

	if got := evalText(t, ctx, "B1"); got != "text" {
		t.Errorf("B1 = %v, want \"text\"", got)
	}

	// blank cells resolve to nil and coerce to zero in arithmetic
	assertNumber(t, evalText(t, ctx, "Z99+1"), 1)

	// absolute markers do not change resolution
	assertNumber(t, evalText(t, ctx, "$A$1"), 10)
}

func TestEvalWithoutResolver(t *testing.T) {
	ctx := testContext(nil)
	assertErrorCode(t, evalText(t, ctx, "A1"), ErrorCodeRef)
	assertErrorCode(t, evalText(t, ctx, "A1:B2"), ErrorCodeRef)
}

func TestEvalSheetSpanIsRefError(t *testing.T) {
	grid := newGridResolver()
	grid.set("Sheet1", "A1", 1.0)
	ctx := testContext(grid)
	assertErrorCode(t, evalText(t, ctx, "Sheet1:Sheet3!A1"), ErrorCodeRef)
}

func TestEvalArrayLiteral(t *testing.T) {
	ctx := testContext(nil)
	got := evalText(t, ctx, "{1,2;3,4}")
	arr, ok := got.(*ValueArray)
	if !ok {
		t.Fatalf("got %T, want array", got)
	}
	if arr.RowCount() != 2 || arr.ColCount() != 2 {
		t.Fatalf("got %dx%d, want 2x2", arr.RowCount(), arr.ColCount())
	}
	if arr.Rows[1][0] != 3.0 {
		t.Errorf("cell (2,1) = %v, want 3", arr.Rows[1][0])
	}
}

func TestEvalBroadcasting(t *testing.T) {
	ctx := testContext(nil)

	t.Run("scalar against array", func(t *testing.T) {
		got := evalText(t, ctx, "{1,2,3}*10")
		arr, ok := got.(*ValueArray)
		if !ok {
			t.Fatalf("got %T, want array", got)
		}
		want := []float64{10, 20, 30}
		for i, w := range want {
			if arr.Rows[0][i] != w {
				t.Errorf("cell %d = %v, want %v", i, arr.Rows[0][i], w)
			}
		}
	})

	t.Run("array against array", func(t *testing.T) {
		got := evalText(t, ctx, "{1,2}+{10,20}")
		arr, ok := got.(*ValueArray)
		if !ok {
			t.Fatalf("got %T, want array", got)
		}
		if arr.Rows[0][0] != 11.0 || arr.Rows[0][1] != 22.0 {
			t.Errorf("got %v, want [11 22]", arr.Rows[0])
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		assertErrorCode(t, evalText(t, ctx, "{1,2}+{1,2,3}"), ErrorCodeValue)
	})

	t.Run("element error stays elementwise", func(t *testing.T) {
		got := evalText(t, ctx, "{1,0}/0+{0,0}")
		arr, ok := got.(*ValueArray)
		if !ok {
			t.Fatalf("got %T, want array", got)
		}
		for i := range arr.Rows[0] {
			assertErrorCode(t, arr.Rows[0][i], ErrorCodeDiv0)
		}
	})

	t.Run("unary over array", func(t *testing.T) {
		got := evalText(t, ctx, "-{1,2}")
		arr, ok := got.(*ValueArray)
		if !ok {
			t.Fatalf("got %T, want array", got)
		}
		if arr.Rows[0][0] != -1.0 || arr.Rows[0][1] != -2.0 {
			t.Errorf("got %v, want [-1 -2]", arr.Rows[0])
		}
	})

	t.Run("comparison broadcasts", func(t *testing.T) {
		got := evalText(t, ctx, "{1,5}>3")
		arr, ok := got.(*ValueArray)
		if !ok {
			t.Fatalf("got %T, want array", got)
		}
		if arr.Rows[0][0] != false || arr.Rows[0][1] != true {
			t.Errorf("got %v, want [false true]", arr.Rows[0])
		}
	})
}

func TestEvalBareName(t *testing.T) {
	ctx := testContext(nil)

	// a name that matches a registered function reads as a typo
	assertErrorCode(t, evalText(t, ctx, "SUM"), ErrorCodeName)

	// any other bare name evaluates to its own text
	if got := evalText(t, ctx, "Revenue"); got != "Revenue" {
		t.Errorf("got %v, want Revenue", got)
	}
}

func TestEvalUnknownFunction(t *testing.T) {
	ctx := testContext(nil)
	assertErrorCode(t, evalText(t, ctx, "NOSUCHFUNC(1)"), ErrorCodeName)
}

func TestEvalIdempotence(t *testing.T) {
	// repeated evaluation of one immutable AST gives identical results
	grid := newGridResolver()
	grid.set("", "A1", 2.0)
	ctx := testContext(grid)

	node, err := ParseFormula("A1*A1+1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	first := Evaluate(node, ctx)
	for i := 0; i < 10; i++ {
		if got := Evaluate(node, ctx); got != first {
			t.Fatalf("evaluation %d returned %v, first returned %v", i, got, first)
		}
	}
	assertNumber(t, first, 5)
}

func TestEvalRangeThroughFunction(t *testing.T) {
	grid := newGridResolver()
	for i := 1; i <= 5; i++ {
		grid.set("", fmt.Sprintf("A%d", i), float64(i))
	}
	ctx := testContext(grid)

	assertNumber(t, evalText(t, ctx, "SUM(A1:A5)"), 15)
	assertNumber(t, evalText(t, ctx, "SUM(A1:A5)/COUNT(A1:A5)"), 3)
}
