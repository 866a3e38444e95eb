// This file holds the durable schema: the generation catalog and one table
// per attribute kind.
package sqlite

// Schema DDL for all tables. The catalog id is AUTOINCREMENT so a reclaimed
// generation id is never handed out again; links keep the ids they captured.
const (
	createDatabanks = `CREATE TABLE IF NOT EXISTS databanks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    committed_at INTEGER
);`

	createSequences = `CREATE TABLE IF NOT EXISTS entries_sequences (
    generation_id INTEGER NOT NULL REFERENCES databanks(id),
    entry_id TEXT NOT NULL,
    sequence TEXT NOT NULL
);`

	createWords = `CREATE TABLE IF NOT EXISTS words_entries (
    generation_id INTEGER NOT NULL REFERENCES databanks(id),
    entry_id TEXT NOT NULL,
    key TEXT NOT NULL,
    word TEXT NOT NULL
);`

	createStrings = `CREATE TABLE IF NOT EXISTS strings_entries (
    generation_id INTEGER NOT NULL REFERENCES databanks(id),
    entry_id TEXT NOT NULL,
    key TEXT NOT NULL,
    string TEXT NOT NULL
);`

	createUniqueStrings = `CREATE TABLE IF NOT EXISTS unique_strings_entries (
    generation_id INTEGER NOT NULL REFERENCES databanks(id),
    entry_id TEXT NOT NULL,
    key TEXT NOT NULL,
    string TEXT NOT NULL
);`

	createNumbers = `CREATE TABLE IF NOT EXISTS numbers_entries (
    generation_id INTEGER NOT NULL REFERENCES databanks(id),
    entry_id TEXT NOT NULL,
    key TEXT NOT NULL,
    number REAL NOT NULL
);`

	createDates = `CREATE TABLE IF NOT EXISTS dates_entries (
    generation_id INTEGER NOT NULL REFERENCES databanks(id),
    entry_id TEXT NOT NULL,
    key TEXT NOT NULL,
    date TEXT NOT NULL
);`

	// other_generation_id has no foreign key: reclaiming the target
	// databank must not fail because another databank still links to it.
	createLinks = `CREATE TABLE IF NOT EXISTS links (
    generation_id INTEGER NOT NULL REFERENCES databanks(id),
    entry_id TEXT NOT NULL,
    other_generation_id INTEGER NOT NULL,
    other_entry_id TEXT NOT NULL
);`
)

// Index DDL. Lookup by value goes through (key, value); lookup by entry
// through (generation_id, entry_id).
const (
	idxDatabanksName          = `CREATE INDEX IF NOT EXISTS idx_databanks_name ON databanks(name, created_at);`
	idxSequencesEntry         = `CREATE UNIQUE INDEX IF NOT EXISTS idx_sequences_entry ON entries_sequences(generation_id, entry_id);`
	idxWordsKeyWord           = `CREATE INDEX IF NOT EXISTS idx_words_key_word ON words_entries(key, word);`
	idxWordsWord              = `CREATE INDEX IF NOT EXISTS idx_words_word ON words_entries(word);`
	idxWordsEntry             = `CREATE INDEX IF NOT EXISTS idx_words_entry ON words_entries(generation_id, entry_id);`
	idxStringsKeyString       = `CREATE INDEX IF NOT EXISTS idx_strings_key_string ON strings_entries(key, string);`
	idxStringsEntry           = `CREATE INDEX IF NOT EXISTS idx_strings_entry ON strings_entries(generation_id, entry_id);`
	idxUniqueStringsKeyString = `CREATE INDEX IF NOT EXISTS idx_unique_strings_key_string ON unique_strings_entries(key, string);`
	idxUniqueStringsUnique    = `CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_strings_unique ON unique_strings_entries(generation_id, key, string);`
	idxUniqueStringsEntry     = `CREATE INDEX IF NOT EXISTS idx_unique_strings_entry ON unique_strings_entries(generation_id, entry_id);`
	idxNumbersKeyNumber       = `CREATE INDEX IF NOT EXISTS idx_numbers_key_number ON numbers_entries(key, number);`
	idxNumbersEntry           = `CREATE INDEX IF NOT EXISTS idx_numbers_entry ON numbers_entries(generation_id, entry_id);`
	idxDatesKeyDate           = `CREATE INDEX IF NOT EXISTS idx_dates_key_date ON dates_entries(key, date);`
	idxDatesEntry             = `CREATE INDEX IF NOT EXISTS idx_dates_entry ON dates_entries(generation_id, entry_id);`
	idxLinksEntry             = `CREATE INDEX IF NOT EXISTS idx_links_entry ON links(generation_id, entry_id);`
	idxLinksOther             = `CREATE INDEX IF NOT EXISTS idx_links_other ON links(other_generation_id, other_entry_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createDatabanks,
	createSequences,
	createWords,
	createStrings,
	createUniqueStrings,
	createNumbers,
	createDates,
	createLinks,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxDatabanksName,
	idxSequencesEntry,
	idxWordsKeyWord,
	idxWordsWord,
	idxWordsEntry,
	idxStringsKeyString,
	idxStringsEntry,
	idxUniqueStringsKeyString,
	idxUniqueStringsUnique,
	idxUniqueStringsEntry,
	idxNumbersKeyNumber,
	idxNumbersEntry,
	idxDatesKeyDate,
	idxDatesEntry,
	idxLinksEntry,
	idxLinksOther,
}
