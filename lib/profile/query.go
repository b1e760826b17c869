package profile

import (
	"strings"
)

type Type int

const (
	Select Type = iota
	Insert
	Update
	Delete

	TypeCount
)

var typeString = [TypeCount]string{
	Select: "select",
	Insert: "insert",
	Update: "update",
	Delete: "delete",
}

func (T Type) String() string {
	if T < 0 || T >= TypeCount {
		return "unknown"
	}
	return typeString[T]
}

// Classify picks the statement type from the leading keyword. Anything that is not an
// insert, update or delete counts as a select.
func Classify(query string) Type {
	query = strings.TrimSpace(query)
	end := strings.IndexAny(query, " \t\r\n(")
	if end == -1 {
		end = len(query)
	}
	switch strings.ToLower(query[:end]) {
	case "insert":
		return Insert
	case "update":
		return Update
	case "delete":
		return Delete
	default:
		return Select
	}
}

// Normalize makes statements that only differ in their literal values compare equal. A space is
// put after every comma and quoted or numeric values following = are replaced with ?.
func Normalize(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch c {
		case ',':
			b.WriteByte(',')
			if i+1 < len(query) && query[i+1] != ' ' {
				b.WriteByte(' ')
			}
		case '=':
			b.WriteByte('=')
			j := i + 1
			for j < len(query) && query[j] == ' ' {
				j++
			}
			end := literalEnd(query, j)
			if end == j {
				continue
			}
			b.WriteString(query[i+1 : j])
			b.WriteByte('?')
			i = end - 1
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// literalEnd returns the end of the quoted string or number starting at i, or i if there is none.
func literalEnd(query string, i int) int {
	if i >= len(query) {
		return i
	}

	if query[i] == '\'' {
		for j := i + 1; j < len(query); j++ {
			if query[j] != '\'' {
				continue
			}
			// '' is an escaped quote
			if j+1 < len(query) && query[j+1] == '\'' {
				j++
				continue
			}
			return j + 1
		}
		return len(query)
	}

	j := i
	if query[j] == '-' || query[j] == '+' {
		j++
	}
	start := j
	for j < len(query) && (isDigit(query[j]) || query[j] == '.') {
		j++
	}
	if j == start {
		return i
	}
	return j
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
