package sync

import "strings"

// NameRecord is the first/last name pair of a CRM user or contact record.
type NameRecord struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// CapitalizeName uppercases the first character of a name and leaves the
// rest untouched:
//
//	"john"      -> "John"
//	"mary jane" -> "Mary jane"
//	"O'CONNOR"  -> "O'CONNOR"
//	""          -> ""
//
// Whitespace-only input is returned unchanged, without trimming. This is
// deliberately not a title-case or lowercase-then-capitalize transform;
// only the first character is forced to upper case.
func CapitalizeName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return name
	}
	r := []rune(trimmed)
	first := strings.ToUpper(string(r[0]))
	if len(r) == 1 {
		return first
	}
	return first + string(r[1:])
}

// Normalized returns a copy of the record with both names capitalized.
// An empty side stays empty.
func (n NameRecord) Normalized() NameRecord {
	return NameRecord{
		FirstName: CapitalizeName(n.FirstName),
		LastName:  CapitalizeName(n.LastName),
	}
}

// IsEmpty reports whether both names are empty.
func (n NameRecord) IsEmpty() bool {
	return n.FirstName == "" && n.LastName == ""
}
