// Package uniprot indexes UniProtKB flat files (Swiss-Prot and TrEMBL .dat)
// into a databank build session.
package uniprot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/prs/pkg/types"
)

// dateLayout is the date format of DT lines, e.g. 01-JAN-1988. Month names
// are matched case-insensitively by time.Parse.
const dateLayout = "02-Jan-2006"

var ecPattern = regexp.MustCompile(`EC=([0-9\-]+\.[0-9\-]+\.[0-9\-]+\.[0-9\-]+)`)

// License banner that UniProt appends to every CC block.
const (
	bannerCopyright = "Copyrighted by the UniProt Consortium, see https://www.uniprot.org/terms"
	bannerLicense   = "Distributed under the Creative Commons Attribution (CC BY 4.0) License"
)

// ErrNoEntry is returned when a data line appears before the first ID line.
var ErrNoEntry = errors.New("data line outside an entry")

// entry accumulates the multi-line fields of the entry being read. They are
// indexed when the entry terminator is reached.
type entry struct {
	id          string
	description strings.Builder
	comment     strings.Builder
	geneNames   strings.Builder
	sequence    strings.Builder
}

func (e *entry) reset(id string) {
	e.id = id
	e.description.Reset()
	e.comment.Reset()
	e.geneNames.Reset()
	e.sequence.Reset()
}

// Index reads a UniProtKB flat file from r and records every entry in db.
// It returns the number of entries indexed. Index stops at the first
// malformed line or ingestion error; the caller decides whether to discard
// the session.
func Index(ctx context.Context, r io.Reader, db types.Databank) (int, error) {
	br := bufio.NewReader(r)
	var (
		e       entry
		entries int
		lineNo  int
	)
	for {
		line, rerr := br.ReadString('\n')
		if rerr != nil && rerr != io.EOF {
			return entries, fmt.Errorf("reading line %d: %w", lineNo+1, rerr)
		}
		if line == "" && rerr == io.EOF {
			return entries, nil
		}
		lineNo++

		done, err := indexLine(db, &e, strings.TrimRight(line, "\r\n"))
		if err != nil {
			return entries, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if done {
			entries++
			if err := ctx.Err(); err != nil {
				return entries, err
			}
		}
		if rerr == io.EOF {
			return entries, nil
		}
	}
}

// indexLine handles one line. It reports whether the line terminated an
// entry.
func indexLine(db types.Databank, e *entry, line string) (bool, error) {
	dataType, data := line, ""
	if len(line) > 5 {
		dataType, data = line[:5], line[5:]
	}
	dataType = strings.TrimSpace(dataType)

	if dataType == "ID" {
		fields := strings.Fields(data)
		if len(fields) == 0 {
			return false, fmt.Errorf("ID line without entry name")
		}
		e.reset(fields[0])
		return false, db.IndexUniqueString(e.id, "id", e.id)
	}
	if dataType == "XX" {
		return false, nil
	}
	if e.id == "" {
		if dataType == "" && strings.TrimSpace(data) == "" {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s", ErrNoEntry, dataType)
	}

	switch {
	case dataType == "AC":
		for _, ac := range splitList(data) {
			if err := db.IndexString(e.id, "ac", ac); err != nil {
				return false, err
			}
		}
	case dataType == "DE":
		e.description.WriteString(data)
		e.description.WriteByte('\n')
	case dataType == "DT":
		return false, indexDate(db, e.id, data)
	case dataType == "GN":
		e.geneNames.WriteString(data)
		e.geneNames.WriteByte(' ')
	case dataType == "OC" || dataType == "KW":
		key := strings.ToLower(dataType)
		for _, kw := range splitList(strings.Trim(data, ";.")) {
			if err := db.IndexString(e.id, key, kw); err != nil {
				return false, err
			}
		}
	case dataType == "CC":
		e.comment.WriteString(data)
		e.comment.WriteByte('\n')
	case dataType == "RX":
		for _, stmt := range splitList(data) {
			key, value, ok := strings.Cut(stmt, "=")
			if !ok {
				continue
			}
			if err := db.IndexString(e.id, strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)); err != nil {
				return false, err
			}
		}
	case strings.HasPrefix(dataType, "R"):
		return false, db.IndexString(e.id, "ref", data)
	case dataType == "DR":
		return false, db.IndexText(e.id, "dr", data)
	case dataType == "SQ":
		e.sequence.Reset()
		return false, indexSequenceHeader(db, e.id, data)
	case dataType == "":
		e.sequence.WriteString(strings.Join(strings.Fields(data), ""))
	case dataType == "//":
		return true, flush(db, e)
	default:
		return false, db.IndexText(e.id, strings.ToLower(dataType), data)
	}
	return false, nil
}

// indexDate records the date of a DT line: "01-JAN-1988, integrated into
// UniProtKB/Swiss-Prot."
func indexDate(db types.Databank, entryID, data string) error {
	s, _, _ := strings.Cut(data, ",")
	date, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("parsing DT date: %w", err)
	}
	return db.IndexDate(entryID, "dt", date)
}

// indexSequenceHeader records the statements of an SQ line:
// "SEQUENCE   254 AA;  28174 MW;  A3A6B3D3F3E6B0C4 CRC64;"
func indexSequenceHeader(db types.Databank, entryID, data string) error {
	for _, stmt := range splitList(data) {
		fields := strings.Fields(stmt)
		if len(fields) < 2 {
			continue
		}
		var err error
		switch {
		case fields[0] == "SEQUENCE" && fields[len(fields)-1] == "AA" && len(fields) == 3:
			err = indexInt(db, entryID, "length", fields[1])
		case fields[len(fields)-1] == "MW":
			err = indexInt(db, entryID, "mw", fields[0])
		case fields[len(fields)-1] == "CRC64":
			err = db.IndexString(entryID, "crc64", fields[0])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func indexInt(db types.Databank, entryID, key, s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	return db.IndexNumber(entryID, key, float64(n))
}

// flush indexes the accumulated fields of the entry at its terminator.
func flush(db types.Databank, e *entry) error {
	if e.description.Len() > 0 {
		if err := indexDescription(db, e.id, e.description.String()); err != nil {
			return err
		}
	}
	if e.comment.Len() > 0 {
		if err := db.IndexText(e.id, "cc", stripBanner(e.comment.String())); err != nil {
			return err
		}
	}
	if e.sequence.Len() > 0 {
		if err := db.SetSequence(e.id, e.sequence.String()); err != nil {
			return err
		}
	}
	if e.geneNames.Len() > 0 {
		if err := indexGeneNames(db, e.id, e.geneNames.String()); err != nil {
			return err
		}
	}
	e.reset("")
	return nil
}

// indexDescription records the recommended full name as the title, the
// whole description as text and every EC number in it.
func indexDescription(db types.Databank, entryID, description string) error {
	var key string
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if k, v, ok := strings.Cut(line, ":"); ok && !strings.Contains(k, "=") {
			key = strings.TrimSpace(k)
			line = v
		}
		for _, stmt := range splitList(line) {
			full, ok := strings.CutPrefix(stmt, "Full=")
			if key != "RecName" || !ok {
				continue
			}
			// Drop evidence tags: "Full=Foo {ECO:0000256|...}".
			full, _, _ = strings.Cut(full, " {")
			if err := db.IndexString(entryID, "title", full); err != nil {
				return err
			}
		}
	}

	if err := db.IndexText(entryID, "de", description); err != nil {
		return err
	}

	for _, m := range ecPattern.FindAllStringSubmatch(description, -1) {
		if err := db.IndexString(entryID, "ec", m[1]); err != nil {
			return err
		}
	}
	return nil
}

// indexGeneNames records every name of the GN block:
// "Name=APP; Synonyms=A4, AD1;"
func indexGeneNames(db types.Databank, entryID, geneNames string) error {
	for _, stmt := range splitList(geneNames) {
		_, value, ok := strings.Cut(stmt, "=")
		if !ok {
			continue
		}
		for _, name := range strings.Split(value, ",") {
			name, _, _ = strings.Cut(strings.TrimSpace(name), " {")
			if name == "" {
				continue
			}
			if err := db.IndexString(entryID, "gn", name); err != nil {
				return err
			}
		}
	}
	return nil
}

// stripBanner removes the UniProt license banner from a comment block.
func stripBanner(text string) string {
	lines := strings.Split(text, "\n")
	for i := 0; i+3 < len(lines); i++ {
		if isRule(lines[i]) &&
			strings.TrimSpace(lines[i+1]) == bannerCopyright &&
			strings.TrimSpace(lines[i+2]) == bannerLicense &&
			isRule(lines[i+3]) {
			lines = append(lines[:i:i], lines[i+4:]...)
			break
		}
	}
	return strings.Join(lines, "\n")
}

func isRule(line string) bool {
	return strings.TrimSpace(strings.ReplaceAll(line, "-", "")) == ""
}

// splitList splits a "; " separated list, dropping the trailing ";" and
// empty items.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ";") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
