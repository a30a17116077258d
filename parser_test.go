package formula

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func mustParse(t *testing.T, text string) ASTNode {
	t.Helper()
	node, err := ParseFormula(text)
	if err != nil {
		t.Fatalf("ParseFormula(%q) failed: %v", text, err)
	}
	return node
}

func TestParserValidFormulas(t *testing.T) {
	valid := []string{
		"1+2",
		"A1",
		"SUM(A1:A10)",
		"Sheet2!A1",
		"Sheet2!A1:B2",
		"SUM(Sheet2!A1:A10)",
		"Sheet2!A1 + Sheet3!B1",
		"SUM(B2:A1)",
		"SUM(A1:A1)",
		`"Hello 世界"`,
		`CONCATENATE("Hello ", "世界")`,
		"{1,2;3,4}",
		"{}",
		"A:A",
		"5:5",
		"$A$1:$B$2",
		"Sheet1:Sheet3!A1",
		"IF(A1>0, 1, -1)",
		"-(2+3)*4",
		"2^3^2",
		"1=1",
		"TRUE",
		"NULL",
		"#REF!",
		"PI()",
	}

	for _, text := range valid {
		t.Run(text, func(t *testing.T) {
			mustParse(t, text)
		})
	}
}

func TestParserInvalidFormulas(t *testing.T) {
	invalid := []string{
		"",
		"SUM(",
		"A1:",
		`"hello`,
		"1+",
		"(1+2",
		"1+2)",
		"SUM(1,,2)",
		"A1:B:C",
		"A1:5",
		"A:A:A",
		"Sheet1!A1:Sheet2!B2",
		"{1,2;3}",
		"{A1:A2}",
		"{{1}}",
		"A:A+1 1",
		"$XFE1",
	}

	for _, text := range invalid {
		t.Run(text, func(t *testing.T) {
			_, err := ParseFormula(text)
			if err == nil {
				t.Fatalf("ParseFormula(%q) succeeded, want error", text)
			}
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("error does not wrap ErrSyntax: %v", err)
			}
		})
	}
}

func TestParserPrecedence(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"1+2*3", "(1+(2*3))"},
		{"1*2+3", "((1*2)+3)"},
		{"2^3^2", "((2^3)^2)"},
		{"-2^2", "(-2^2)"},
		{"1+2=3", "((1+2)=3)"},
		{"(1+2)*3", "((1+2)*3)"},
		{"1-2-3", "((1-2)-3)"},
		{"8/4/2", "((8/4)/2)"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := mustParse(t, tt.text).ToString()
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParserUnaryChains(t *testing.T) {
	node := mustParse(t, "--5")
	outer, ok := node.(*UnaryNode)
	if !ok || outer.Op != UnaryMinus {
		t.Fatalf("outer node is not unary minus: %T", node)
	}
	inner, ok := outer.Operand.(*UnaryNode)
	if !ok || inner.Op != UnaryMinus {
		t.Fatalf("inner node is not unary minus: %T", outer.Operand)
	}
}

func TestParserReferenceEquivalence(t *testing.T) {
	// absolute markers change rendering but not the resolved coordinates
	rel := mustParse(t, "A1").(*ReferenceNode)
	abs := mustParse(t, "$A$1").(*ReferenceNode)
	if rel.Address.Col != abs.Address.Col || rel.Address.Row != abs.Address.Row {
		t.Errorf("A1 and $A$1 resolve to different coordinates")
	}
	if !abs.Address.ColAbsolute || !abs.Address.RowAbsolute {
		t.Errorf("$A$1 lost its absolute markers")
	}
	if rel.Address.ColAbsolute || rel.Address.RowAbsolute {
		t.Errorf("A1 gained absolute markers")
	}
}

func TestParserRangeNormalization(t *testing.T) {
	// B2:A1 reorders to put the top-left corner first
	node := mustParse(t, "B2:A1").(*RangeNode)
	if node.Range.Start.Col != 1 || node.Range.Start.Row != 1 {
		t.Errorf("start is (%d,%d), want (1,1)", node.Range.Start.Col, node.Range.Start.Row)
	}
	if node.Range.End.Col != 2 || node.Range.End.Row != 2 {
		t.Errorf("end is (%d,%d), want (2,2)", node.Range.End.Col, node.Range.End.Row)
	}

	// column ranges expand to the full row extent
	col := mustParse(t, "A:A").(*RangeNode)
	if col.Range.Start.Row != 1 || col.Range.End.Row != MaxRows {
		t.Errorf("column range rows are (%d,%d), want (1,%d)", col.Range.Start.Row, col.Range.End.Row, MaxRows)
	}

	// row ranges expand to the full column extent
	row := mustParse(t, "5:5").(*RangeNode)
	if row.Range.Start.Col != 1 || row.Range.End.Col != MaxColumns {
		t.Errorf("row range cols are (%d,%d), want (1,%d)", row.Range.Start.Col, row.Range.End.Col, MaxColumns)
	}
}

func TestParserBareColumnRefIsError(t *testing.T) {
	// a column or row reference must be part of a range; lexically A alone
	// is an identifier, but a $-forced one reaches the parser
	_, err := ParseFormula("$A")
	if err == nil {
		t.Fatal("expected parse error for bare column reference")
	}
}

func TestParserKeywordLiterals(t *testing.T) {
	tests := []struct {
		text string
		want Primitive
	}{
		{"TRUE", true},
		{"false", false},
		{"NULL", nil},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			node := mustParse(t, tt.text)
			lit, ok := node.(*LiteralNode)
			if !ok {
				t.Fatalf("got %T, want literal", node)
			}
			if lit.Value != tt.want {
				t.Errorf("got %v, want %v", lit.Value, tt.want)
			}
		})
	}
}

func TestParserErrorLiteral(t *testing.T) {
	node := mustParse(t, "#NUM!")
	lit, ok := node.(*LiteralNode)
	if !ok {
		t.Fatalf("got %T, want literal", node)
	}
	ferr := asError(lit.Value)
	if ferr == nil || ferr.Code != ErrorCodeNum {
		t.Errorf("got %v, want #NUM! sentinel", lit.Value)
	}
}

func TestParserFunctionNameCase(t *testing.T) {
	node := mustParse(t, "sum(1,2)").(*FunctionNode)
	if node.Name != "SUM" {
		t.Errorf("function name %q, want SUM", node.Name)
	}
}

func TestParserDepthLimit(t *testing.T) {
	text := strings.Repeat("(", 600) + "1" + strings.Repeat(")", 600)
	_, err := ParseFormula(text)
	if err == nil {
		t.Fatal("expected parse error for deeply nested formula")
	}
	if !errors.Is(err, ErrSyntax) {
		t.Errorf("error does not wrap ErrSyntax: %v", err)
	}
}

func TestParserRoundTrip(t *testing.T) {
	// ToString output must re-parse to a structurally identical tree
	formulas := []string{
		"1+2*3",
		"SUM(A1:A10,5)",
		"IF(A1>0,\"yes\",\"no\")",
		"{1,2;3,4}",
		"Sheet2!$A$1:B2",
		"'My Sheet'!A1",
		"-A1^2",
		"CONCATENATE(\"a\",\"b\")",
		"A:A",
		"12.5/0.5",
		"#N/A",
		"Sheet1:Sheet3!A1",
	}

	for _, text := range formulas {
		t.Run(text, func(t *testing.T) {
			first := mustParse(t, text)
			rendered := first.ToString()
			second, err := ParseFormula(rendered)
			if err != nil {
				t.Fatalf("re-parse of %q failed: %v", rendered, err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("round trip changed the tree:\n first: %s\nsecond: %s", rendered, second.ToString())
			}
			if second.ToString() != rendered {
				t.Errorf("rendering is not stable: %q vs %q", rendered, second.ToString())
			}
		})
	}
}
