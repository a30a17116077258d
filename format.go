package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// numberMask is one parsed format section: literal text around a single
// digit field described by placeholder counts
type numberMask struct {
	prefix    string
	suffix    string
	intZeros  int  // minimum integer digits ('0' placeholders)
	intHashes int  // optional integer digits ('#' placeholders)
	decZeros  int  // mandatory decimal digits
	decHashes int  // optional decimal digits
	hasPoint  bool // mask contains a decimal point
	grouping  bool // mask contains a thousands separator
	hasDigits bool // mask contains any placeholder at all
}

// FormatNumber renders a number through a display format code, the
// mini-language behind TEXT. supported: '0' and '#' placeholders, a
// decimal point, ',' thousands grouping, literal characters carried
// verbatim, and up to three ';'-separated sections for positive,
// negative, and zero values. when no negative section exists a '-' is
// prepended to the whole formatted output, literals included.
func FormatNumber(value float64, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("empty format code")
	}
	sections := strings.Split(code, ";")
	if len(sections) > 3 {
		return "", fmt.Errorf("format code has %d sections, at most 3 allowed", len(sections))
	}

	sectionIdx := 0
	negate := false
	switch {
	case value < 0 && len(sections) >= 2:
		sectionIdx = 1
	case value < 0:
		negate = true
	case value == 0 && len(sections) >= 3:
		sectionIdx = 2
	}

	mask, err := parseNumberMask(sections[sectionIdx])
	if err != nil {
		return "", err
	}

	out := mask.render(value)
	if negate {
		out = "-" + out
	}
	return out, nil
}

// parseNumberMask splits one section into prefix literal, digit field,
// and suffix literal
func parseNumberMask(section string) (*numberMask, error) {
	mask := &numberMask{}
	var prefix, suffix strings.Builder
	inField := false
	fieldDone := false

	for _, ch := range section {
		switch ch {
		case '0', '#':
			if fieldDone {
				return nil, fmt.Errorf("format code has more than one digit field: %q", section)
			}
			inField = true
			mask.hasDigits = true
			if mask.hasPoint {
				if ch == '0' {
					mask.decZeros++
				} else {
					mask.decHashes++
				}
			} else {
				if ch == '0' {
					mask.intZeros++
				} else {
					mask.intHashes++
				}
			}
		case '.':
			if mask.hasPoint {
				return nil, fmt.Errorf("format code has more than one decimal point: %q", section)
			}
			if fieldDone {
				return nil, fmt.Errorf("format code has more than one digit field: %q", section)
			}
			inField = true
			mask.hasPoint = true
		case ',':
			// grouping only counts inside the digit field; elsewhere a
			// comma is a literal
			if inField && !mask.hasPoint && !fieldDone {
				mask.grouping = true
			} else if inField {
				fieldDone = true
				suffix.WriteRune(ch)
			} else {
				prefix.WriteRune(ch)
			}
		default:
			if inField {
				fieldDone = true
			}
			if fieldDone {
				suffix.WriteRune(ch)
			} else {
				prefix.WriteRune(ch)
			}
		}
	}

	if !mask.hasDigits {
		return nil, fmt.Errorf("format code has no digit placeholders: %q", section)
	}
	mask.prefix = prefix.String()
	mask.suffix = suffix.String()
	return mask, nil
}

// render formats the magnitude of value through the mask
func (m *numberMask) render(value float64) string {
	if value < 0 {
		value = -value
	}

	decimals := m.decZeros + m.decHashes
	fixed := strconv.FormatFloat(value, 'f', decimals, 64)

	intPart := fixed
	decPart := ""
	if decimals > 0 {
		dot := strings.IndexByte(fixed, '.')
		intPart = fixed[:dot]
		decPart = fixed[dot+1:]
	}

	// optional decimal positions drop trailing zeros
	for len(decPart) > m.decZeros && decPart[len(decPart)-1] == '0' {
		decPart = decPart[:len(decPart)-1]
	}

	// with no mandatory integer digit a bare zero disappears
	if m.intZeros == 0 && intPart == "0" {
		intPart = ""
	}
	for len(intPart) < m.intZeros {
		intPart = "0" + intPart
	}

	if m.grouping {
		intPart = groupThousands(intPart)
	}

	var sb strings.Builder
	sb.WriteString(m.prefix)
	sb.WriteString(intPart)
	if m.hasPoint && (m.decZeros > 0 || decPart != "") {
		sb.WriteByte('.')
		sb.WriteString(decPart)
	}
	sb.WriteString(m.suffix)
	return sb.String()
}

// groupThousands inserts commas every three digits from the right
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}
