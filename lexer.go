package formula

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is the sentinel wrapped by every structural (lexical or
// parse) failure. structural failures mean the formula text itself is
// invalid; they are a separate channel from *FormulaError values, which
// are data produced by evaluation.
var ErrSyntax = errors.New("syntax error")

// TokenType represents different types of tokens in formulas
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenString
	TokenIdentifier
	TokenReference
	TokenErrorLiteral
	TokenOperator   // + - * / ^
	TokenComparator // = <> < > <= >=
	TokenLeftParen
	TokenRightParen
	TokenLeftBrace
	TokenRightBrace
	TokenComma
	TokenSemicolon
	TokenColon
)

// character classification constants. slightly easier to read.
const (
	charNull       = 0
	charTab        = '\t'
	charNewline    = '\n'
	charReturn     = '\r'
	charSpace      = ' '
	charQuote      = '"'
	charApostrophe = '\''
	charHash       = '#'
	charDollar     = '$'
	charLParen     = '('
	charRParen     = ')'
	charLBrace     = '{'
	charRBrace     = '}'
	charAsterisk   = '*'
	charPlus       = '+'
	charComma      = ','
	charMinus      = '-'
	charPeriod     = '.'
	charSlash      = '/'
	charColon      = ':'
	charSemicolon  = ';'
	charLess       = '<'
	charEqual      = '='
	charGreater    = '>'
	charQuestion   = '?'
	charCaret      = '^'
	charUnderscore = '_'
	charExclaim    = '!'
)

// RefInfo is the payload of a reference token: the classified label plus
// any sheet qualification. EndSheet is set only for sheet-span references.
type RefInfo struct {
	Ref
	Sheet    string
	EndSheet string
}

// Token represents a lexical token with position information
type Token struct {
	Type  TokenType
	Value string
	Pos   int // rune position in input
	Ref   *RefInfo
}

// Lexer tokenizes formula expressions (the text after the leading =,
// which the caller has already stripped)
type Lexer struct {
	input  string
	runes  []rune // UTF-8 aware representation
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given formula text
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		runes:  []rune(input), // runes for UTF-8 support. could do without but a real pain
		pos:    0,
		tokens: []Token{},
	}
}

// Tokenize tokenizes formula text in a single left-to-right pass. the
// returned stream is always terminated by an EOF token on success.
func Tokenize(input string) ([]Token, error) {
	return NewLexer(input).Tokenize()
}

// Tokenize scans the entire input and returns the token stream
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.runes) {
			break
		}
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
	}
	l.tokens = append(l.tokens, Token{Type: TokenEOF, Pos: l.pos})
	return l.tokens, nil
}

// nextToken returns the next token from the input. the caller has
// already skipped whitespace and checked for EOF.
func (l *Lexer) nextToken() (Token, error) {
	startPos := l.pos
	ch := l.current()

	// string literals
	if ch == charQuote {
		return l.scanString()
	}

	// quoted sheet names ('My Sheet'!A1)
	if ch == charApostrophe {
		return l.scanQuotedSheetRef()
	}

	// error literals (#DIV/0!, #VALUE!, ...)
	if ch == charHash {
		return l.scanErrorLiteral()
	}

	// a leading $ forces reference-label parsing
	if ch == charDollar {
		return l.scanDollarRef()
	}

	// numbers, or the start/end of a row reference (5:5)
	if l.isDigit(ch) {
		return l.scanNumberOrRowRef()
	}

	// punctuation
	switch ch {
	case charLParen:
		l.pos++
		return Token{Type: TokenLeftParen, Value: "(", Pos: startPos}, nil
	case charRParen:
		l.pos++
		return Token{Type: TokenRightParen, Value: ")", Pos: startPos}, nil
	case charLBrace:
		l.pos++
		return Token{Type: TokenLeftBrace, Value: "{", Pos: startPos}, nil
	case charRBrace:
		l.pos++
		return Token{Type: TokenRightBrace, Value: "}", Pos: startPos}, nil
	case charComma:
		l.pos++
		return Token{Type: TokenComma, Value: ",", Pos: startPos}, nil
	case charSemicolon:
		l.pos++
		return Token{Type: TokenSemicolon, Value: ";", Pos: startPos}, nil
	case charColon:
		l.pos++
		return Token{Type: TokenColon, Value: ":", Pos: startPos}, nil
	}

	// operators
	switch ch {
	case charPlus, charMinus, charAsterisk, charSlash, charCaret:
		l.pos++
		return Token{Type: TokenOperator, Value: string(ch), Pos: startPos}, nil
	}

	// comparators, with one-character lookahead for <= <> >=
	switch ch {
	case charEqual:
		l.pos++
		return Token{Type: TokenComparator, Value: "=", Pos: startPos}, nil
	case charLess:
		l.pos++
		if l.current() == charEqual {
			l.pos++
			return Token{Type: TokenComparator, Value: "<=", Pos: startPos}, nil
		}
		if l.current() == charGreater {
			l.pos++
			return Token{Type: TokenComparator, Value: "<>", Pos: startPos}, nil
		}
		return Token{Type: TokenComparator, Value: "<", Pos: startPos}, nil
	case charGreater:
		l.pos++
		if l.current() == charEqual {
			l.pos++
			return Token{Type: TokenComparator, Value: ">=", Pos: startPos}, nil
		}
		return Token{Type: TokenComparator, Value: ">", Pos: startPos}, nil
	}

	// identifiers, function names, references
	if l.isAlpha(ch) || ch == charUnderscore {
		return l.scanWord()
	}

	return Token{}, fmt.Errorf("%w: unexpected character %q at position %d", ErrSyntax, string(ch), startPos)
}

// helper methods for character navigation and classification

// substring returns a substring of the original input based on rune positions
func (l *Lexer) substring(start, end int) string {
	if start < 0 || end > len(l.runes) || start > end {
		return ""
	}
	return string(l.runes[start:end])
}

func (l *Lexer) current() rune {
	if l.pos >= len(l.runes) {
		return charNull
	}
	return l.runes[l.pos]
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos >= len(l.runes) || pos < 0 {
		return charNull
	}
	return l.runes[pos]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch == charSpace || ch == charTab || ch == charNewline || ch == charReturn {
			l.pos++
		} else {
			break
		}
	}
}

func (l *Lexer) isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func (l *Lexer) isAlphaNumeric(ch rune) bool {
	return l.isAlpha(ch) || l.isDigit(ch)
}

// afterColonKind returns the reference kind active across the colon of a
// range under construction (the previous tokens are "ref :"), or -1.
// this is how the end label of A:A or 5:5 learns its classification.
func (l *Lexer) afterColonKind() RefKind {
	n := len(l.tokens)
	if n >= 2 && l.tokens[n-1].Type == TokenColon && l.tokens[n-2].Type == TokenReference {
		return l.tokens[n-2].Ref.Kind
	}
	return RefKind(-1)
}

// scanString scans a double-quoted string literal; "" inside the string
// is an escaped literal quote
func (l *Lexer) scanString() (Token, error) {
	startPos := l.pos
	l.pos++ // consume opening quote

	var result []rune
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch == charQuote {
			if l.peek(1) == charQuote {
				result = append(result, charQuote)
				l.pos += 2 // consume both quotes
			} else {
				l.pos++ // consume closing quote
				return Token{Type: TokenString, Value: string(result), Pos: startPos}, nil
			}
		} else {
			result = append(result, ch)
			l.pos++
		}
	}

	return Token{}, fmt.Errorf("%w: unterminated string literal at position %d", ErrSyntax, startPos)
}

// scanErrorLiteral scans a # token and matches it against the closed
// error set. unknown #-tokens are a lexical error, not coerced to #NAME?.
func (l *Lexer) scanErrorLiteral() (Token, error) {
	startPos := l.pos
	l.pos++ // consume '#'

	for l.pos < len(l.runes) {
		ch := l.current()
		if l.isAlphaNumeric(ch) || ch == charSlash || ch == charExclaim || ch == charQuestion || ch == charUnderscore {
			l.pos++
		} else {
			break
		}
	}

	literal := strings.ToUpper(l.substring(startPos, l.pos))
	if _, ok := errorLiterals[literal]; !ok {
		return Token{}, fmt.Errorf("%w: unknown error literal %s at position %d", ErrSyntax, literal, startPos)
	}
	return Token{Type: TokenErrorLiteral, Value: literal, Pos: startPos}, nil
}

// scanNumberOrRowRef scans a number literal, or a row reference when the
// digit run is immediately followed by ':' or closes a row range
func (l *Lexer) scanNumberOrRowRef() (Token, error) {
	startPos := l.pos

	for l.pos < len(l.runes) && l.isDigit(l.current()) {
		l.pos++
	}

	// a decimal part makes this unambiguously a number
	if l.current() == charPeriod && l.isDigit(l.peek(1)) {
		l.pos++ // consume '.'
		for l.pos < len(l.runes) && l.isDigit(l.current()) {
			l.pos++
		}
		return Token{Type: TokenNumber, Value: l.substring(startPos, l.pos), Pos: startPos}, nil
	}

	digits := l.substring(startPos, l.pos)

	// a bare digit run immediately followed by ':' starts a row range
	// (5:5); a digit run right after such a colon closes one
	if l.current() == charColon || l.afterColonKind() == RefKindRow {
		ref, err := ParseRefLabel(digits)
		if err != nil {
			return Token{}, fmt.Errorf("%w: %v at position %d", ErrSyntax, err, startPos)
		}
		return Token{Type: TokenReference, Value: digits, Pos: startPos, Ref: &RefInfo{Ref: ref}}, nil
	}

	return Token{Type: TokenNumber, Value: digits, Pos: startPos}, nil
}

// scanDollarRef scans a $-forced reference label ($A$1, $A, $1)
func (l *Lexer) scanDollarRef() (Token, error) {
	startPos := l.pos
	for l.pos < len(l.runes) && (l.isAlphaNumeric(l.current()) || l.current() == charDollar) {
		l.pos++
	}
	label := l.substring(startPos, l.pos)
	ref, err := ParseRefLabel(label)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v at position %d", ErrSyntax, err, startPos)
	}
	return Token{Type: TokenReference, Value: label, Pos: startPos, Ref: &RefInfo{Ref: ref}}, nil
}

// scanQuotedSheetRef scans a quoted sheet name ('...' with '' escapes),
// which must be followed by ! and a reference label
func (l *Lexer) scanQuotedSheetRef() (Token, error) {
	startPos := l.pos
	l.pos++ // consume opening apostrophe

	var name []rune
	closed := false
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch == charApostrophe {
			if l.peek(1) == charApostrophe {
				name = append(name, charApostrophe)
				l.pos += 2
			} else {
				l.pos++ // consume closing apostrophe
				closed = true
				break
			}
		} else {
			name = append(name, ch)
			l.pos++
		}
	}

	if !closed {
		return Token{}, fmt.Errorf("%w: unterminated sheet name at position %d", ErrSyntax, startPos)
	}
	if l.current() != charExclaim {
		return Token{}, fmt.Errorf("%w: expected '!' after quoted sheet name at position %d", ErrSyntax, startPos)
	}
	l.pos++ // consume '!'

	return l.scanSheetQualifiedRef(startPos, string(name), "")
}

// scanWord scans identifiers, function names, and unqualified or
// sheet-qualified references, disambiguating by bounded lookahead
func (l *Lexer) scanWord() (Token, error) {
	startPos := l.pos
	for l.pos < len(l.runes) && (l.isAlphaNumeric(l.current()) || l.current() == charUnderscore) {
		l.pos++
	}
	word := l.substring(startPos, l.pos)

	// sheet-span reference (Sheet1:Sheet3!A1): word ':' word '!', checked
	// with bounded lookahead before any other classification
	if l.current() == charColon {
		savedPos := l.pos
		l.pos++ // consume ':'
		endStart := l.pos
		for l.pos < len(l.runes) && (l.isAlphaNumeric(l.current()) || l.current() == charUnderscore) {
			l.pos++
		}
		endSheet := l.substring(endStart, l.pos)
		if endSheet != "" && l.current() == charExclaim {
			l.pos++ // consume '!'
			return l.scanSheetQualifiedRef(startPos, word, endSheet)
		}
		// not a sheet span, restore and classify normally
		l.pos = savedPos
	}

	// sheet-qualified reference (Sheet1!A1)
	if l.current() == charExclaim {
		l.pos++ // consume '!'
		return l.scanSheetQualifiedRef(startPos, word, "")
	}

	// a word directly followed by '(' is a function name, even when it
	// looks like a cell label (LOG10, ...)
	if l.current() == charLParen {
		return Token{Type: TokenIdentifier, Value: word, Pos: startPos}, nil
	}

	// in-bounds cell label
	if looksLikeCellLabel(word) {
		ref, err := ParseRefLabel(word)
		if err != nil {
			return Token{}, fmt.Errorf("%w: %v at position %d", ErrSyntax, err, startPos)
		}
		return Token{Type: TokenReference, Value: word, Pos: startPos, Ref: &RefInfo{Ref: ref}}, nil
	}

	// column reference: letters-only word starting a range (A:A) or
	// closing a column range
	if isLettersOnly(word) && (l.current() == charColon || l.afterColonKind() == RefKindColumn) {
		if ref, err := ParseRefLabel(word); err == nil && ref.Kind == RefKindColumn {
			return Token{Type: TokenReference, Value: word, Pos: startPos, Ref: &RefInfo{Ref: ref}}, nil
		}
	}

	// plain identifier; TRUE/FALSE/NULL/NIL and the #NAME?-vs-text
	// decision belong to the parser and evaluator
	return Token{Type: TokenIdentifier, Value: word, Pos: startPos}, nil
}

// scanSheetQualifiedRef scans the reference label following a sheet
// qualifier and attaches the sheet names to the token
func (l *Lexer) scanSheetQualifiedRef(startPos int, sheet, endSheet string) (Token, error) {
	labelStart := l.pos
	for l.pos < len(l.runes) && (l.isAlphaNumeric(l.current()) || l.current() == charDollar) {
		l.pos++
	}
	label := l.substring(labelStart, l.pos)
	if label == "" {
		return Token{}, fmt.Errorf("%w: expected reference after sheet name at position %d", ErrSyntax, startPos)
	}

	ref, err := ParseRefLabel(label)
	if err != nil {
		return Token{}, fmt.Errorf("%w: invalid reference after sheet name at position %d: %v", ErrSyntax, startPos, err)
	}

	return Token{
		Type:  TokenReference,
		Value: l.substring(startPos, l.pos),
		Pos:   startPos,
		Ref:   &RefInfo{Ref: ref, Sheet: sheet, EndSheet: endSheet},
	}, nil
}
