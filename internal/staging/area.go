// Package staging implements the per-session staging area of a databank
// build: one append-only JSONL buffer per attribute kind inside a private
// temp directory. Nothing here is durable; the directory is removed when the
// session ends, whatever the outcome.
package staging

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/prs/pkg/types"
)

// ErrReleased is returned by operations on an Area after Release.
var ErrReleased = errors.New("staging area released")

// Fact is a staged string, unique-string, word or date row.
type Fact struct {
	EntryID string `json:"entry_id"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

// NumberFact is a staged number row.
type NumberFact struct {
	EntryID string  `json:"entry_id"`
	Key     string  `json:"key"`
	Number  float64 `json:"number"`
}

// SequenceRecord is a staged sequence row.
type SequenceRecord struct {
	EntryID  string `json:"entry_id"`
	Sequence string `json:"sequence"`
}

// LinkRecord is a staged cross-link row. OtherGenerationID was resolved when
// the link was staged.
type LinkRecord struct {
	EntryID           string `json:"entry_id"`
	OtherGenerationID int64  `json:"other_generation_id"`
	OtherEntryID      string `json:"other_entry_id"`
}

// buffer is the JSONL file of one kind. The file is created on first append.
type buffer struct {
	path  string
	f     *os.File
	w     *bufio.Writer
	enc   *json.Encoder
	count int
}

// Area is the staging directory of one build session. It is not safe for
// concurrent use; a build is a sequential batch job.
type Area struct {
	dir      string
	buffers  map[types.Kind]*buffer
	released bool
}

// NewArea creates a private staging directory under parent (the system temp
// directory when parent is empty), prefixed with the databank name.
func NewArea(parent, name string) (*Area, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("creating staging parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, name+"_")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	return &Area{
		dir:     dir,
		buffers: make(map[types.Kind]*buffer),
	}, nil
}

// Dir returns the staging directory path.
func (a *Area) Dir() string {
	return a.dir
}

// Append writes rec as one JSONL line to the buffer of kind.
func (a *Area) Append(kind types.Kind, rec any) error {
	if a.released {
		return ErrReleased
	}
	b, err := a.buffer(kind)
	if err != nil {
		return err
	}
	if err := b.enc.Encode(rec); err != nil {
		return fmt.Errorf("staging %s record: %w", kind, err)
	}
	b.count++
	return nil
}

// Count returns the number of records appended to the buffer of kind.
func (a *Area) Count(kind types.Kind) int {
	if b, ok := a.buffers[kind]; ok {
		return b.count
	}
	return 0
}

// Flush writes buffered records of every kind to disk and syncs the files.
func (a *Area) Flush() error {
	if a.released {
		return ErrReleased
	}
	for _, kind := range types.Kinds {
		if err := a.flush(kind); err != nil {
			return err
		}
	}
	return nil
}

// Release closes every buffer and removes the staging directory. Release is
// idempotent.
func (a *Area) Release() error {
	if a.released {
		return nil
	}
	a.released = true

	var errs []error
	for _, b := range a.buffers {
		if err := b.f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.buffers = nil
	if err := os.RemoveAll(a.dir); err != nil {
		errs = append(errs, fmt.Errorf("removing staging directory: %w", err))
	}
	return errors.Join(errs...)
}

// Each decodes the records of kind in append order and calls fn for each.
// Pending writes are flushed first. A kind with no records is a no-op.
func Each[T any](a *Area, kind types.Kind, fn func(T) error) error {
	if a.released {
		return ErrReleased
	}
	b, ok := a.buffers[kind]
	if !ok {
		return nil
	}
	if err := a.flush(kind); err != nil {
		return err
	}

	f, err := os.Open(b.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", b.path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var rec T
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decoding %s record: %w", kind, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func (a *Area) buffer(kind types.Kind) (*buffer, error) {
	if b, ok := a.buffers[kind]; ok {
		return b, nil
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	path := filepath.Join(a.dir, string(kind)+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating %s buffer: %w", kind, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	b := &buffer{path: path, f: f, w: w, enc: enc}
	a.buffers[kind] = b
	return b, nil
}

func (a *Area) flush(kind types.Kind) error {
	b, ok := a.buffers[kind]
	if !ok {
		return nil
	}
	if err := b.w.Flush(); err != nil {
		return fmt.Errorf("flushing %s buffer: %w", kind, err)
	}
	if err := b.f.Sync(); err != nil {
		return fmt.Errorf("syncing %s buffer: %w", kind, err)
	}
	return nil
}
