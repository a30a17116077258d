package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// BinaryOp represents arithmetic operators in AST nodes
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpPower
)

// UnaryOp represents unary prefix operators in AST nodes
type UnaryOp int

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
)

// CompareOp represents comparison operators in AST nodes
type CompareOp int

const (
	CmpEqual CompareOp = iota
	CmpNotEqual
	CmpLess
	CmpLessEqual
	CmpGreater
	CmpGreaterEqual
)

// ASTNode is an immutable formula expression tree node. nodes are created
// fresh per ParseFormula call and never mutated afterwards, so parsed
// formulas are safe to cache and to evaluate concurrently.
type ASTNode interface {
	Eval(ctx *EvalContext) Primitive
	ToString() string
}

// LiteralNode represents a number, string, boolean, null, or error literal
type LiteralNode struct {
	Value Primitive
}

func (n *LiteralNode) ToString() string {
	switch v := n.Value.(type) {
	case string:
		escaped := strings.ReplaceAll(v, "\"", "\"\"")
		return "\"" + escaped + "\""
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		// no exponent form so the output stays lexable
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return "NULL"
	case *FormulaError:
		return v.Literal()
	default:
		return fmt.Sprint(v)
	}
}

// NameNode represents a bare identifier that is neither a keyword nor a
// function call. whether it evaluates as a legacy text literal or as
// #NAME? is an evaluation-time decision, so the ambiguity stays visible
// in the tree.
type NameNode struct {
	Name string
}

func (n *NameNode) ToString() string {
	return n.Name
}

// ReferenceNode represents a single cell reference
type ReferenceNode struct {
	Address CellAddress
	Sheet   string
}

func (n *ReferenceNode) ToString() string {
	if n.Sheet != "" {
		return quoteSheetName(n.Sheet) + "!" + n.Address.Label()
	}
	return n.Address.Label()
}

// RangeNode represents a cell, column, row, or sheet-span range
type RangeNode struct {
	Range CellRange
}

func (n *RangeNode) ToString() string {
	prefix := ""
	if n.Range.Sheet != "" {
		prefix = quoteSheetName(n.Range.Sheet)
		if n.Range.EndSheet != "" {
			prefix += ":" + quoteSheetName(n.Range.EndSheet)
		}
		prefix += "!"
	}
	start := Ref{Kind: n.Range.Kind, Address: n.Range.Start}
	end := Ref{Kind: n.Range.Kind, Address: n.Range.End}
	if n.Range.EndSheet != "" && n.Range.Start == n.Range.End {
		// single-cell sheet span renders without the colon
		return prefix + start.label()
	}
	return prefix + start.label() + ":" + end.label()
}

// ArrayNode represents an array literal; Rows is rectangular and cells
// never contain ranges or nested arrays
type ArrayNode struct {
	Rows [][]ASTNode
}

func (n *ArrayNode) ToString() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, row := range n.Rows {
		if i > 0 {
			sb.WriteByte(';')
		}
		for j, cell := range row {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(cell.ToString())
		}
	}
	sb.WriteByte('}')
	return sb.String()
}

// FunctionNode represents a function call; Name is upper-cased for
// case-insensitive dispatch
type FunctionNode struct {
	Name string
	Args []ASTNode
}

func (n *FunctionNode) ToString() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.ToString()
	}
	return n.Name + "(" + strings.Join(args, ",") + ")"
}

// UnaryNode represents a unary prefix operation
type UnaryNode struct {
	Op      UnaryOp
	Operand ASTNode
}

func (n *UnaryNode) ToString() string {
	if n.Op == UnaryMinus {
		return "-" + n.Operand.ToString()
	}
	return "+" + n.Operand.ToString()
}

// BinaryNode represents an arithmetic operation
type BinaryNode struct {
	Op    BinaryOp
	Left  ASTNode
	Right ASTNode
}

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpPower:
		return "^"
	default:
		return "?"
	}
}

func (n *BinaryNode) ToString() string {
	return "(" + n.Left.ToString() + n.Op.String() + n.Right.ToString() + ")"
}

// CompareNode represents a comparison
type CompareNode struct {
	Op    CompareOp
	Left  ASTNode
	Right ASTNode
}

func (op CompareOp) String() string {
	switch op {
	case CmpEqual:
		return "="
	case CmpNotEqual:
		return "<>"
	case CmpLess:
		return "<"
	case CmpLessEqual:
		return "<="
	case CmpGreater:
		return ">"
	case CmpGreaterEqual:
		return ">="
	default:
		return "?"
	}
}

func (n *CompareNode) ToString() string {
	return "(" + n.Left.ToString() + n.Op.String() + n.Right.ToString() + ")"
}

// maxParseDepth bounds expression nesting so pathological formulas fail
// with a parse error instead of exhausting the host stack
const maxParseDepth = 512

// Parser parses tokens into an AST
type Parser struct {
	tokens []Token
	pos    int
	depth  int
}

// NewParser creates a new parser over a token stream
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseFormula tokenizes and parses formula text (the expression after
// the leading =). it fails if trailing tokens remain after a complete
// expression; there are no silent partial parses.
func ParseFormula(text string) (ASTNode, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	parser := NewParser(tokens)
	node, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := parser.current(); tok.Type != TokenEOF {
		return nil, fmt.Errorf("%w: unexpected token after expression: %s", ErrSyntax, tok.Value)
	}
	return node, nil
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek(offset int) Token {
	pos := p.pos + offset
	if pos >= len(p.tokens) || pos < 0 {
		return Token{Type: TokenEOF}
	}
	return p.tokens[pos]
}

// parseExpression is the entry for one expression (lowest precedence)
func (p *Parser) parseExpression() (ASTNode, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxParseDepth {
		return nil, fmt.Errorf("%w: expression nesting exceeds %d levels", ErrSyntax, maxParseDepth)
	}
	return p.parseComparison()
}

// parseComparison handles comparison operators (lowest precedence),
// left-associative
func (p *Parser) parseComparison() (ASTNode, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenComparator {
		var op CompareOp
		switch p.current().Value {
		case "=":
			op = CmpEqual
		case "<>":
			op = CmpNotEqual
		case "<":
			op = CmpLess
		case "<=":
			op = CmpLessEqual
		case ">":
			op = CmpGreater
		case ">=":
			op = CmpGreaterEqual
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &CompareNode{Op: op, Left: left, Right: right}
	}

	return left, nil
}

// parseAdditive handles addition and subtraction, left-associative
func (p *Parser) parseAdditive() (ASTNode, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOperator {
		var op BinaryOp
		switch p.current().Value {
		case "+":
			op = OpAdd
		case "-":
			op = OpSubtract
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}

	return left, nil
}

// parseMultiplicative handles multiplication and division, left-associative
func (p *Parser) parseMultiplicative() (ASTNode, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOperator {
		var op BinaryOp
		switch p.current().Value {
		case "*":
			op = OpMultiply
		case "/":
			op = OpDivide
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}

	return left, nil
}

// parsePower handles exponentiation. chains evaluate left-to-right
// (2^3^2 is (2^3)^2), using the same tail accumulation as the other
// levels rather than naive right-recursion.
func (p *Parser) parsePower() (ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOperator && p.current().Value == "^" {
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: OpPower, Left: left, Right: right}
	}

	return left, nil
}

// parseUnary handles unary prefix operators, recursing for chains (--5)
func (p *Parser) parseUnary() (ASTNode, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxParseDepth {
		return nil, fmt.Errorf("%w: expression nesting exceeds %d levels", ErrSyntax, maxParseDepth)
	}

	if tok := p.current(); tok.Type == TokenOperator && (tok.Value == "+" || tok.Value == "-") {
		op := UnaryPlus
		if tok.Value == "-" {
			op = UnaryMinus
		}
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: op, Operand: operand}, nil
	}

	return p.parsePrimary()
}

// parsePrimary handles literals, references, ranges, array literals,
// function calls, and parenthesized expressions
func (p *Parser) parsePrimary() (ASTNode, error) {
	tok := p.current()

	switch tok.Type {
	case TokenNumber:
		p.pos++
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number: %s", ErrSyntax, tok.Value)
		}
		return &LiteralNode{Value: val}, nil

	case TokenString:
		p.pos++
		return &LiteralNode{Value: tok.Value}, nil

	case TokenErrorLiteral:
		p.pos++
		code := errorLiterals[tok.Value]
		return &LiteralNode{Value: NewFormulaError(code, "")}, nil

	case TokenReference:
		p.pos++
		return p.parseReferenceOrRange(tok)

	case TokenLeftBrace:
		return p.parseArrayLiteral()

	case TokenIdentifier:
		return p.parseIdentifier()

	case TokenLeftParen:
		p.pos++
		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current().Type != TokenRightParen {
			return nil, fmt.Errorf("%w: expected closing parenthesis", ErrSyntax)
		}
		p.pos++
		return node, nil

	case TokenEOF:
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)

	default:
		return nil, fmt.Errorf("%w: unexpected token: %s", ErrSyntax, tok.Value)
	}
}

// parseReferenceOrRange builds a ReferenceNode, or a RangeNode when the
// reference is followed by ':' and a second reference
func (p *Parser) parseReferenceOrRange(tok Token) (ASTNode, error) {
	start := tok.Ref

	if p.current().Type == TokenColon {
		if p.peek(1).Type != TokenReference {
			return nil, fmt.Errorf("%w: expected reference after ':' in range", ErrSyntax)
		}
		p.pos++ // consume ':'
		endTok := p.current()
		p.pos++
		end := endTok.Ref

		// both ends must resolve to the same reference kind
		if start.Kind != end.Kind {
			return nil, fmt.Errorf("%w: mismatched range: %s reference joined with %s reference", ErrSyntax, start.Kind, end.Kind)
		}

		// sheet names on either end must agree; the non-empty one wins
		sheet := start.Sheet
		if end.Sheet != "" {
			if sheet != "" && sheet != end.Sheet {
				return nil, fmt.Errorf("%w: cross-sheet range %s!...:%s!... is not supported", ErrSyntax, start.Sheet, end.Sheet)
			}
			sheet = end.Sheet
		}
		endSheet := start.EndSheet
		if end.EndSheet != "" {
			if endSheet != "" && endSheet != end.EndSheet {
				return nil, fmt.Errorf("%w: cross-sheet range is not supported", ErrSyntax)
			}
			endSheet = end.EndSheet
		}

		rng := normalizeRange(start.Ref, end.Ref, sheet, endSheet)
		orderRange(&rng)
		return &RangeNode{Range: rng}, nil
	}

	// single-cell sheet span (Sheet1:Sheet3!A1) is still a range
	if start.EndSheet != "" {
		if start.Kind != RefKindCell {
			return nil, fmt.Errorf("%w: sheet-span reference must address a cell", ErrSyntax)
		}
		return &RangeNode{Range: CellRange{
			Start:    start.Address,
			End:      start.Address,
			Kind:     RefKindCell,
			Sheet:    start.Sheet,
			EndSheet: start.EndSheet,
		}}, nil
	}

	if start.Kind != RefKindCell {
		return nil, fmt.Errorf("%w: %s reference must be part of a range", ErrSyntax, start.Kind)
	}

	return &ReferenceNode{Address: start.Address, Sheet: start.Sheet}, nil
}

// orderRange swaps coordinates so Start is the top-left corner
func orderRange(rng *CellRange) {
	if rng.Start.Col > rng.End.Col {
		rng.Start.Col, rng.End.Col = rng.End.Col, rng.Start.Col
		rng.Start.ColAbsolute, rng.End.ColAbsolute = rng.End.ColAbsolute, rng.Start.ColAbsolute
	}
	if rng.Start.Row > rng.End.Row {
		rng.Start.Row, rng.End.Row = rng.End.Row, rng.Start.Row
		rng.Start.RowAbsolute, rng.End.RowAbsolute = rng.End.RowAbsolute, rng.Start.RowAbsolute
	}
}

// parseIdentifier handles keyword literals, function calls, and bare names
func (p *Parser) parseIdentifier() (ASTNode, error) {
	tok := p.current()
	upper := strings.ToUpper(tok.Value)

	switch upper {
	case "TRUE":
		p.pos++
		return &LiteralNode{Value: true}, nil
	case "FALSE":
		p.pos++
		return &LiteralNode{Value: false}, nil
	case "NULL", "NIL":
		p.pos++
		return &LiteralNode{Value: nil}, nil
	}

	if p.peek(1).Type == TokenLeftParen {
		return p.parseFunctionCall()
	}

	p.pos++
	return &NameNode{Name: tok.Value}, nil
}

// parseFunctionCall parses NAME(args...). empty argument slots are a
// parse error, not an implicit blank argument.
func (p *Parser) parseFunctionCall() (ASTNode, error) {
	name := strings.ToUpper(p.current().Value)
	p.pos++ // consume name
	p.pos++ // consume '('

	args := []ASTNode{}

	if p.current().Type == TokenRightParen {
		p.pos++
		return &FunctionNode{Name: name, Args: args}, nil
	}

	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		switch p.current().Type {
		case TokenRightParen:
			p.pos++
			return &FunctionNode{Name: name, Args: args}, nil
		case TokenComma:
			p.pos++
		case TokenEOF:
			return nil, fmt.Errorf("%w: unexpected end in arguments of %s", ErrSyntax, name)
		default:
			return nil, fmt.Errorf("%w: expected ',' or ')' in arguments of %s", ErrSyntax, name)
		}
	}
}

// parseArrayLiteral parses {a,b;c,d}. rows are semicolon-separated and
// must be rectangular; cells may not contain ranges or nested arrays.
func (p *Parser) parseArrayLiteral() (ASTNode, error) {
	p.pos++ // consume '{'

	// an empty {} parses to a single empty row
	if p.current().Type == TokenRightBrace {
		p.pos++
		return &ArrayNode{Rows: [][]ASTNode{{}}}, nil
	}

	rows := [][]ASTNode{}
	row := []ASTNode{}

	for {
		cell, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if offender := findRangeOrArray(cell); offender != "" {
			return nil, fmt.Errorf("%w: %s is not allowed inside an array literal", ErrSyntax, offender)
		}
		row = append(row, cell)

		switch p.current().Type {
		case TokenComma:
			p.pos++
		case TokenSemicolon:
			p.pos++
			rows = append(rows, row)
			row = []ASTNode{}
		case TokenRightBrace:
			p.pos++
			rows = append(rows, row)
			width := len(rows[0])
			for i, r := range rows {
				if len(r) != width {
					return nil, fmt.Errorf("%w: array row %d has %d cells, expected %d", ErrSyntax, i+1, len(r), width)
				}
			}
			return &ArrayNode{Rows: rows}, nil
		case TokenEOF:
			return nil, fmt.Errorf("%w: unterminated array literal", ErrSyntax)
		default:
			return nil, fmt.Errorf("%w: expected ',', ';' or '}' in array literal", ErrSyntax)
		}
	}
}

// findRangeOrArray walks a subtree and names the first range or array
// node found, or returns ""
func findRangeOrArray(node ASTNode) string {
	switch n := node.(type) {
	case *RangeNode:
		return "a range"
	case *ArrayNode:
		return "an array"
	case *UnaryNode:
		return findRangeOrArray(n.Operand)
	case *BinaryNode:
		if s := findRangeOrArray(n.Left); s != "" {
			return s
		}
		return findRangeOrArray(n.Right)
	case *CompareNode:
		if s := findRangeOrArray(n.Left); s != "" {
			return s
		}
		return findRangeOrArray(n.Right)
	case *FunctionNode:
		for _, arg := range n.Args {
			if s := findRangeOrArray(arg); s != "" {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}
