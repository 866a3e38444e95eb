// Package pdb indexes PDB format coordinate files into two databanks at once:
// one holding the sequences observed in the ATOM records and one holding
// the SEQRES sequences. Both get the same descriptive facts.
package pdb

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/mesh-intelligence/prs/pkg/types"
)

// Databank names of the two builds an index run feeds.
const (
	AtomDatabank   = "pdb_atom"
	SeqresDatabank = "pdb_seqres"
)

// revisionLayout is the REVDAT date format, e.g. 09-DEC-92.
const revisionLayout = "02-Jan-06"

// linkTargets maps DBREF database codes to the databanks their accessions
// are indexed in.
var linkTargets = map[string]string{
	"SWS":    "sprot",
	"TREMBL": "uniprot",
	"UNP":    "uniprot",
}

var oneLetterCodes = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLN": 'Q', "GLU": 'E', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
	"GLX": 'Z', "ASX": 'B',
}

// ErrNoHeader is returned when a record that needs the PDB id appears before
// the HEADER record.
var ErrNoHeader = errors.New("record before HEADER")

// OneLetter returns the one-letter code of a residue name, X when unknown.
func OneLetter(residue string) byte {
	if c, ok := oneLetterCodes[residue]; ok {
		return c
	}
	return 'X'
}

// LinkTarget returns the databank holding the accessions of a sequence
// database code, e.g. UNP to uniprot.
func LinkTarget(database string) (string, bool) {
	target, ok := linkTargets[database]
	return target, ok
}

// indexer holds the state of one PDB file.
type indexer struct {
	atom, seqres types.Databank

	id      string
	models  int
	source  strings.Builder
	remark  strings.Builder
	journal strings.Builder
	ligands map[string]struct{}

	// Chain sequences in order of first appearance.
	chains          []string
	atomSequences   map[string]*strings.Builder
	seqresSequences map[string]*strings.Builder
}

// Index reads one PDB file from r and records its facts in atom and seqres.
func Index(ctx context.Context, r io.Reader, atom, seqres types.Databank) error {
	ix := &indexer{
		atom:            atom,
		seqres:          seqres,
		ligands:         make(map[string]struct{}),
		atomSequences:   make(map[string]*strings.Builder),
		seqresSequences: make(map[string]*strings.Builder),
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ix.line(scanner.Text()); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if lineNo%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading line %d: %w", lineNo+1, err)
	}
	if ix.id == "" {
		return ErrNoHeader
	}
	return ix.finish()
}

// both applies op to the atom and seqres databanks.
func (ix *indexer) both(op func(types.Databank) error) error {
	if err := op(ix.atom); err != nil {
		return err
	}
	return op(ix.seqres)
}

func (ix *indexer) line(line string) error {
	record := strings.TrimSpace(column(line, 0, 6))
	if record == "HEADER" {
		ix.id = strings.TrimSpace(column(line, 62, 66))
		if ix.id == "" {
			return fmt.Errorf("HEADER without id code")
		}
		return ix.both(func(db types.Databank) error {
			return db.IndexUniqueString(ix.id, "id", ix.id)
		})
	}

	switch record {
	case "TITLE", "COMPND", "SOURCE", "KEYWDS", "EXPDTA", "AUTHOR", "REVDAT",
		"JRNL", "REMARK", "DBREF", "ATOM", "HETATM", "SEQRES", "MODEL":
		if ix.id == "" {
			return fmt.Errorf("%w: %s", ErrNoHeader, record)
		}
	default:
		return nil
	}

	switch record {
	case "TITLE":
		text := column(line, 10, 80) + " "
		return ix.both(func(db types.Databank) error { return db.IndexText(ix.id, "title", text) })

	case "COMPND":
		key, value, ok := strings.Cut(column(line, 10, 80), ":")
		if !ok {
			return nil
		}
		value = strings.TrimRight(strings.TrimSpace(value), ";")
		switch strings.TrimSpace(key) {
		case "MOLECULE":
			value = strings.ToLower(value)
			return ix.both(func(db types.Databank) error { return db.IndexString(ix.id, "molecule", value) })
		case "EC":
			return ix.both(func(db types.Databank) error { return db.IndexString(ix.id, "ec", value) })
		}

	case "SOURCE":
		ix.source.WriteString(column(line, 10, 80))
		ix.source.WriteByte(' ')

	case "KEYWDS":
		for _, kw := range strings.Split(column(line, 10, 80), ",") {
			if kw = strings.TrimSpace(kw); kw == "" {
				continue
			}
			if err := ix.both(func(db types.Databank) error { return db.IndexString(ix.id, "keyword", kw) }); err != nil {
				return err
			}
		}

	case "EXPDTA":
		// Methods are shared between structures, so not a unique string.
		method := strings.TrimSpace(column(line, 10, 80))
		return ix.both(func(db types.Databank) error { return db.IndexString(ix.id, "method", method) })

	case "AUTHOR":
		for _, name := range strings.Split(column(line, 10, 80), ",") {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			if err := ix.both(func(db types.Databank) error { return db.IndexString(ix.id, "author", name) }); err != nil {
				return err
			}
		}

	case "REVDAT":
		s := strings.TrimSpace(column(line, 13, 22))
		if s == "" {
			return nil
		}
		date, err := time.Parse(revisionLayout, s)
		if err != nil {
			return fmt.Errorf("parsing REVDAT date: %w", err)
		}
		return ix.both(func(db types.Databank) error { return db.IndexDate(ix.id, "revision", date) })

	case "JRNL":
		ix.journal.WriteString(column(line, 12, 80))
		ix.journal.WriteByte(' ')

	case "REMARK":
		ix.remark.WriteString(column(line, 11, 80))
		ix.remark.WriteByte(' ')

	case "DBREF":
		return ix.dbref(line)

	case "MODEL":
		ix.models++

	case "ATOM", "HETATM":
		// Only the first model contributes.
		if ix.models > 1 {
			return nil
		}
		residue := strings.TrimSpace(column(line, 17, 20))
		if residue == "HOH" || residue == "" {
			return nil
		}
		if record == "HETATM" {
			ix.ligands[residue] = struct{}{}
			return nil
		}
		altLoc := column(line, 16, 17)
		if strings.TrimSpace(column(line, 12, 16)) == "CA" && (altLoc == " " || altLoc == "A" || altLoc == "") {
			ix.sequence(ix.atomSequences, column(line, 21, 22)).WriteByte(OneLetter(residue))
		}

	case "SEQRES":
		b := ix.sequence(ix.seqresSequences, column(line, 11, 12))
		for _, residue := range strings.Fields(column(line, 19, 80)) {
			b.WriteByte(OneLetter(residue))
		}
	}
	return nil
}

// dbref records a chain's reference into a sequence database. References
// into UniProt become links to the entry name; any other database is kept
// as a string under its database code.
//
//	DBREF  1ABC A    1   141  UNP    P69905   HBA_HUMAN        1    141
func (ix *indexer) dbref(line string) error {
	database := strings.TrimSpace(column(line, 26, 32))
	dbID := strings.TrimSpace(column(line, 42, 54))
	if database == "" || dbID == "" {
		return fmt.Errorf("DBREF without database reference")
	}
	entryID := ix.chainEntry(column(line, 12, 13))

	if target, ok := LinkTarget(database); ok {
		return ix.both(func(db types.Databank) error { return db.IndexLink(entryID, target, dbID) })
	}
	return ix.both(func(db types.Databank) error { return db.IndexString(entryID, database, dbID) })
}

// chainEntry returns the entry id of a chain. A blank chain id belongs to the
// structure itself.
func (ix *indexer) chainEntry(chain string) string {
	if chain = strings.TrimSpace(chain); chain == "" {
		return ix.id
	}
	return ix.id + "." + chain
}

func (ix *indexer) sequence(m map[string]*strings.Builder, chain string) *strings.Builder {
	chain = strings.TrimSpace(chain)
	if !slices.Contains(ix.chains, chain) {
		ix.chains = append(ix.chains, chain)
	}
	b, ok := m[chain]
	if !ok {
		b = &strings.Builder{}
		m[chain] = b
	}
	return b
}

// finish records the facts accumulated over the whole file.
func (ix *indexer) finish() error {
	ligands := make([]string, 0, len(ix.ligands))
	for l := range ix.ligands {
		ligands = append(ligands, l)
	}
	slices.Sort(ligands)
	for _, l := range ligands {
		if err := ix.both(func(db types.Databank) error { return db.IndexString(ix.id, "ligand", l) }); err != nil {
			return err
		}
	}

	texts := []struct {
		key string
		b   *strings.Builder
	}{
		{"source", &ix.source},
		{"remark", &ix.remark},
		{"reference", &ix.journal},
	}
	for _, t := range texts {
		if t.b.Len() == 0 {
			continue
		}
		text := t.b.String()
		if err := ix.both(func(db types.Databank) error { return db.IndexText(ix.id, t.key, text) }); err != nil {
			return err
		}
	}

	for _, chain := range ix.chains {
		entryID := ix.chainEntry(chain)
		if b, ok := ix.atomSequences[chain]; ok && b.Len() > 0 {
			if err := ix.atom.SetSequence(entryID, b.String()); err != nil {
				return err
			}
		}
		if b, ok := ix.seqresSequences[chain]; ok && b.Len() > 0 {
			if err := ix.seqres.SetSequence(entryID, b.String()); err != nil {
				return err
			}
		}
	}

	models := float64(max(ix.models, 1))
	return ix.both(func(db types.Databank) error { return db.IndexNumber(ix.id, "model_count", models) })
}

// column returns line[from:to] clipped to the line length. PDB records are
// fixed width but trailing blanks are often stripped.
func column(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	return line[from:min(to, len(line))]
}
