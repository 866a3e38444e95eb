package types

import "time"

// Link is a cross-link from an entry in one generation to an entry in the
// generation of another databank that was current when the link was recorded.
type Link struct {
	GenerationID      int64  `json:"generation_id"`
	EntryID           string `json:"entry_id"`
	OtherGenerationID int64  `json:"other_generation_id"`
	OtherEntryID      string `json:"other_entry_id"`
}

// Entry is the read model of one entry in a generation: every attribute row
// tagged with (GenerationID, EntryID), grouped by key.
type Entry struct {
	Databank      string                 `json:"databank"`
	GenerationID  int64                  `json:"generation_id"`
	EntryID       string                 `json:"entry_id"`
	Sequence      string                 `json:"sequence,omitempty"`
	Strings       map[string][]string    `json:"strings,omitempty"`
	UniqueStrings map[string][]string    `json:"unique_strings,omitempty"`
	Numbers       map[string][]float64   `json:"numbers,omitempty"`
	Dates         map[string][]time.Time `json:"dates,omitempty"`
	Words         map[string][]string    `json:"words,omitempty"`
	Links         []Link                 `json:"links,omitempty"`
}

// NewEntry returns an Entry with all attribute maps allocated.
func NewEntry(databank string, generationID int64, entryID string) *Entry {
	return &Entry{
		Databank:      databank,
		GenerationID:  generationID,
		EntryID:       entryID,
		Strings:       make(map[string][]string),
		UniqueStrings: make(map[string][]string),
		Numbers:       make(map[string][]float64),
		Dates:         make(map[string][]time.Time),
		Words:         make(map[string][]string),
	}
}

// Empty reports whether no attribute row was found for the entry.
func (e *Entry) Empty() bool {
	return e.Sequence == "" &&
		len(e.Strings) == 0 &&
		len(e.UniqueStrings) == 0 &&
		len(e.Numbers) == 0 &&
		len(e.Dates) == 0 &&
		len(e.Words) == 0 &&
		len(e.Links) == 0
}
