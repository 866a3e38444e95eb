package types

// Kind identifies one attribute table of the index. Every kind has its own
// staging buffer and its own durable table.
type Kind string

// Attribute kinds.
const (
	KindSequence     Kind = "sequence"
	KindWord         Kind = "word"
	KindString       Kind = "string"
	KindUniqueString Kind = "unique_string"
	KindNumber       Kind = "number"
	KindDate         Kind = "date"
	KindLink         Kind = "link"
)

// Kinds lists every attribute kind in load order. Reclamation walks the list
// in reverse.
var Kinds = []Kind{
	KindSequence,
	KindWord,
	KindUniqueString,
	KindString,
	KindNumber,
	KindDate,
	KindLink,
}

// Durable table names.
const (
	DatabanksTable     = "databanks"
	SequencesTable     = "entries_sequences"
	WordsTable         = "words_entries"
	StringsTable       = "strings_entries"
	UniqueStringsTable = "unique_strings_entries"
	NumbersTable       = "numbers_entries"
	DatesTable         = "dates_entries"
	LinksTable         = "links"
)

var kindTables = map[Kind]string{
	KindSequence:     SequencesTable,
	KindWord:         WordsTable,
	KindString:       StringsTable,
	KindUniqueString: UniqueStringsTable,
	KindNumber:       NumbersTable,
	KindDate:         DatesTable,
	KindLink:         LinksTable,
}

// Table returns the durable table that holds rows of kind k, or "" for an
// unknown kind.
func (k Kind) Table() string {
	return kindTables[k]
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindTables[k]
	return ok
}
