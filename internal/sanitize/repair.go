package sanitize

import "strings"

// Repair fixes the two malformations models produce most often: literal control
// characters inside string values and trailing commas before a closing bracket.
func Repair(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
				sb.WriteByte(c)
			case c == '\\':
				escaped = true
				sb.WriteByte(c)
			case c == '"':
				inString = false
				sb.WriteByte(c)
			case c == '\n':
				sb.WriteString(`\n`)
			case c == '\r':
				sb.WriteString(`\r`)
			case c == '\t':
				sb.WriteString(`\t`)
			default:
				sb.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			sb.WriteByte(c)
		case ',':
			if next := nextSignificant(text, i+1); next == '}' || next == ']' {
				continue
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func nextSignificant(text string, from int) byte {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case ' ', '\n', '\r', '\t':
			continue
		default:
			return text[i]
		}
	}
	return 0
}
