package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect bounds for the target SpreadsheetML grid
const (
	MaxColumns = 16384   // column XFD
	MaxRows    = 1048576 // 2^20
)

// CellAddress identifies a single cell. Col and Row are 1-based and
// bounded by the dialect limits; the absolute flags record $ markers.
type CellAddress struct {
	Col         int
	Row         int
	ColAbsolute bool
	RowAbsolute bool
}

// RefKind classifies a reference label: a cell (A1), a whole column (A),
// or a whole row (5). both ends of a range must share the same kind.
type RefKind int

const (
	RefKindCell RefKind = iota
	RefKindColumn
	RefKindRow
)

func (k RefKind) String() string {
	switch k {
	case RefKindCell:
		return "cell"
	case RefKindColumn:
		return "column"
	case RefKindRow:
		return "row"
	default:
		return "unknown"
	}
}

// Ref is a classified, normalized reference label. for column refs only
// Col/ColAbsolute are meaningful; for row refs only Row/RowAbsolute.
type Ref struct {
	Kind    RefKind
	Address CellAddress
}

// CellRange is a rectangular region, optionally sheet-qualified. column
// and row-only ranges are normalized to span the full grid extent, with
// the synthetic coordinates marked absolute. EndSheet is set only for
// sheet-span (3-D) references such as Sheet1:Sheet3!A1.
type CellRange struct {
	Start    CellAddress
	End      CellAddress
	Kind     RefKind
	Sheet    string
	EndSheet string
}

// ColumnLabelToIndex converts column letters to a 1-based index,
// case-insensitively (A=1, Z=26, AA=27, ...)
func ColumnLabelToIndex(label string) (int, error) {
	if label == "" {
		return 0, fmt.Errorf("empty column label")
	}
	col := 0
	for _, ch := range label {
		switch {
		case ch >= 'A' && ch <= 'Z':
			col = col*26 + int(ch-'A') + 1
		case ch >= 'a' && ch <= 'z':
			col = col*26 + int(ch-'a') + 1
		default:
			return 0, fmt.Errorf("invalid column label: %s", label)
		}
		if col > MaxColumns {
			return 0, fmt.Errorf("column label out of range: %s", label)
		}
	}
	return col, nil
}

// ColumnIndexToLabel converts a 1-based column index to letters
func ColumnIndexToLabel(col int) string {
	var sb strings.Builder
	for col > 0 {
		col--
		sb.WriteByte(byte('A' + col%26))
		col /= 26
	}
	// letters were emitted least-significant first
	label := []byte(sb.String())
	for i, j := 0, len(label)-1; i < j; i, j = i+1, j-1 {
		label[i], label[j] = label[j], label[i]
	}
	return string(label)
}

// ParseRefLabel classifies and normalizes a reference label such as
// "A1", "$A$1", "$C" or "12". this is the shared lexical routine used
// for bare labels, $-forced labels, and the part following a sheet
// qualifier. it rejects out-of-bounds coordinates.
func ParseRefLabel(label string) (Ref, error) {
	rest := label
	ref := Ref{}

	if strings.HasPrefix(rest, "$") {
		rest = rest[1:]
		ref.Address.ColAbsolute = true
	}

	letterEnd := 0
	for letterEnd < len(rest) && isLetterByte(rest[letterEnd]) {
		letterEnd++
	}
	letters := rest[:letterEnd]
	rest = rest[letterEnd:]

	rowAbsolute := false
	if strings.HasPrefix(rest, "$") {
		rest = rest[1:]
		rowAbsolute = true
	}

	digitEnd := 0
	for digitEnd < len(rest) && rest[digitEnd] >= '0' && rest[digitEnd] <= '9' {
		digitEnd++
	}
	digits := rest[:digitEnd]
	rest = rest[digitEnd:]

	if rest != "" {
		return Ref{}, fmt.Errorf("invalid reference label: %s", label)
	}

	switch {
	case letters != "" && digits != "":
		col, err := ColumnLabelToIndex(letters)
		if err != nil {
			return Ref{}, err
		}
		row, err := parseRowNumber(digits)
		if err != nil {
			return Ref{}, err
		}
		ref.Kind = RefKindCell
		ref.Address.Col = col
		ref.Address.Row = row
		ref.Address.RowAbsolute = rowAbsolute
		return ref, nil

	case letters != "" && digits == "":
		if rowAbsolute {
			return Ref{}, fmt.Errorf("invalid reference label: %s", label)
		}
		col, err := ColumnLabelToIndex(letters)
		if err != nil {
			return Ref{}, err
		}
		ref.Kind = RefKindColumn
		ref.Address.Col = col
		return ref, nil

	case letters == "" && digits != "":
		// a leading $ on a bare row label marks the row absolute
		if rowAbsolute {
			return Ref{}, fmt.Errorf("invalid reference label: %s", label)
		}
		row, err := parseRowNumber(digits)
		if err != nil {
			return Ref{}, err
		}
		ref.Kind = RefKindRow
		ref.Address.Row = row
		ref.Address.RowAbsolute = ref.Address.ColAbsolute
		ref.Address.ColAbsolute = false
		return ref, nil

	default:
		return Ref{}, fmt.Errorf("invalid reference label: %s", label)
	}
}

// parseRowNumber parses and bounds-checks a 1-based row number
func parseRowNumber(digits string) (int, error) {
	row, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("invalid row number: %s", digits)
	}
	if row < 1 || row > MaxRows {
		return 0, fmt.Errorf("row number out of range: %d", row)
	}
	return row, nil
}

// looksLikeCellLabel reports whether a bare word is an in-bounds cell
// label ([A-Za-z]+[0-9]+). out-of-bounds words fall back to identifiers,
// matching host-application behavior for names like ABCD1.
func looksLikeCellLabel(word string) bool {
	letterEnd := 0
	for letterEnd < len(word) && isLetterByte(word[letterEnd]) {
		letterEnd++
	}
	if letterEnd == 0 || letterEnd == len(word) {
		return false
	}
	for i := letterEnd; i < len(word); i++ {
		if word[i] < '0' || word[i] > '9' {
			return false
		}
	}
	col, err := ColumnLabelToIndex(word[:letterEnd])
	if err != nil || col > MaxColumns {
		return false
	}
	row, err := parseRowNumber(word[letterEnd:])
	return err == nil && row <= MaxRows
}

// isLettersOnly reports whether the word is entirely ASCII letters
func isLettersOnly(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		if !isLetterByte(word[i]) {
			return false
		}
	}
	return true
}

func isLetterByte(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// Label renders the address back to its textual form including $ markers
func (a CellAddress) Label() string {
	var sb strings.Builder
	if a.ColAbsolute {
		sb.WriteByte('$')
	}
	sb.WriteString(ColumnIndexToLabel(a.Col))
	if a.RowAbsolute {
		sb.WriteByte('$')
	}
	sb.WriteString(strconv.Itoa(a.Row))
	return sb.String()
}

// label renders one end of a range according to the range kind
func (r Ref) label() string {
	switch r.Kind {
	case RefKindColumn:
		if r.Address.ColAbsolute {
			return "$" + ColumnIndexToLabel(r.Address.Col)
		}
		return ColumnIndexToLabel(r.Address.Col)
	case RefKindRow:
		if r.Address.RowAbsolute {
			return "$" + strconv.Itoa(r.Address.Row)
		}
		return strconv.Itoa(r.Address.Row)
	default:
		return r.Address.Label()
	}
}

// normalizeRange expands two same-kind refs into a full CellRange.
// column refs span rows 1..MaxRows and row refs span columns
// 1..MaxColumns, with the synthetic coordinates marked absolute.
func normalizeRange(start, end Ref, sheet, endSheet string) CellRange {
	rng := CellRange{
		Start:    start.Address,
		End:      end.Address,
		Kind:     start.Kind,
		Sheet:    sheet,
		EndSheet: endSheet,
	}
	switch start.Kind {
	case RefKindColumn:
		rng.Start.Row = 1
		rng.Start.RowAbsolute = true
		rng.End.Row = MaxRows
		rng.End.RowAbsolute = true
	case RefKindRow:
		rng.Start.Col = 1
		rng.Start.ColAbsolute = true
		rng.End.Col = MaxColumns
		rng.End.ColAbsolute = true
	}
	return rng
}

// quoteSheetName re-quotes a sheet name when rendering, if it needs it
func quoteSheetName(name string) string {
	needsQuote := false
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if !isLetterByte(ch) && !(ch >= '0' && ch <= '9') && ch != '_' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
