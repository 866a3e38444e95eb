// Package indextest provides an in-memory types.Databank for testing
// indexers without a store.
package indextest

import (
	"context"
	"strings"
	"time"

	"github.com/mesh-intelligence/prs/pkg/types"
)

// Fact is one recorded string, unique string or text call.
type Fact struct {
	Entry, Key, Value string
}

// Link is one recorded IndexLink call.
type Link struct {
	Entry, Target, OtherEntry string
}

// Recorder keeps every call made to it. Like a real session it rejects a
// second sequence for the same entry.
type Recorder struct {
	name      string
	Strings   []Fact
	Unique    []Fact
	Texts     []Fact
	Numbers   map[string]float64 // keyed by entry/key
	Dates     []time.Time
	Sequences map[string]string
	Links     []Link
}

var _ types.Databank = (*Recorder)(nil)

// NewRecorder returns an empty recorder for the named databank.
func NewRecorder(name string) *Recorder {
	return &Recorder{name: name, Numbers: make(map[string]float64), Sequences: make(map[string]string)}
}

func (r *Recorder) Name() string                 { return r.name }
func (r *Recorder) Generation() types.Generation { return types.Generation{Name: r.name} }

func (r *Recorder) IndexString(entryID, key, s string) error {
	r.Strings = append(r.Strings, Fact{entryID, key, s})
	return nil
}

func (r *Recorder) IndexUniqueString(entryID, key, s string) error {
	r.Unique = append(r.Unique, Fact{entryID, key, s})
	return nil
}

func (r *Recorder) IndexNumber(entryID, key string, n float64) error {
	r.Numbers[entryID+"/"+key] = n
	return nil
}

func (r *Recorder) IndexDate(_, _ string, d time.Time) error {
	r.Dates = append(r.Dates, d)
	return nil
}

func (r *Recorder) IndexText(entryID, key, text string) error {
	r.Texts = append(r.Texts, Fact{entryID, key, text})
	return nil
}

func (r *Recorder) SetSequence(entryID, sequence string) error {
	if _, ok := r.Sequences[entryID]; ok {
		return types.ErrDuplicateSequence
	}
	r.Sequences[entryID] = sequence
	return nil
}

func (r *Recorder) IndexLink(entryID, otherName, otherEntryID string) error {
	r.Links = append(r.Links, Link{entryID, otherName, otherEntryID})
	return nil
}

func (r *Recorder) Close(context.Context, bool) error { return nil }

// StringsOf returns the string facts of entry under key, in call order.
func (r *Recorder) StringsOf(entry, key string) []string {
	var out []string
	for _, f := range r.Strings {
		if f.Entry == entry && f.Key == key {
			out = append(out, f.Value)
		}
	}
	return out
}

// TextOf returns the texts of entry under key, concatenated in call order.
func (r *Recorder) TextOf(entry, key string) string {
	var parts []string
	for _, f := range r.Texts {
		if f.Entry == entry && f.Key == key {
			parts = append(parts, f.Value)
		}
	}
	return strings.Join(parts, "")
}
