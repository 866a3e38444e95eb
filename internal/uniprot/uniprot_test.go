package uniprot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/prs/pkg/types"
)

// recorder is an in-memory types.Databank that keeps every call.
type recorder struct {
	strings   map[string]map[string][]string
	unique    map[string]map[string][]string
	numbers   map[string]map[string][]float64
	dates     map[string]map[string][]time.Time
	texts     map[string]map[string][]string
	sequences map[string]string
}

func newRecorder() *recorder {
	return &recorder{
		strings:   make(map[string]map[string][]string),
		unique:    make(map[string]map[string][]string),
		numbers:   make(map[string]map[string][]float64),
		dates:     make(map[string]map[string][]time.Time),
		texts:     make(map[string]map[string][]string),
		sequences: make(map[string]string),
	}
}

func add[V any](m map[string]map[string][]V, entryID, key string, v V) {
	if m[entryID] == nil {
		m[entryID] = make(map[string][]V)
	}
	m[entryID][key] = append(m[entryID][key], v)
}

func (r *recorder) Name() string                 { return "sprot" }
func (r *recorder) Generation() types.Generation { return types.Generation{ID: 1, Name: "sprot"} }

func (r *recorder) IndexString(entryID, key, s string) error {
	if entryID == "" {
		return types.ErrInvalidEntryID
	}
	add(r.strings, entryID, key, s)
	return nil
}

func (r *recorder) IndexUniqueString(entryID, key, s string) error {
	add(r.unique, entryID, key, s)
	return nil
}

func (r *recorder) IndexNumber(entryID, key string, n float64) error {
	add(r.numbers, entryID, key, n)
	return nil
}

func (r *recorder) IndexDate(entryID, key string, d time.Time) error {
	add(r.dates, entryID, key, d)
	return nil
}

func (r *recorder) IndexText(entryID, key, text string) error {
	add(r.texts, entryID, key, text)
	return nil
}

func (r *recorder) SetSequence(entryID, sequence string) error {
	if _, ok := r.sequences[entryID]; ok {
		return types.ErrDuplicateSequence
	}
	r.sequences[entryID] = sequence
	return nil
}

func (r *recorder) IndexLink(entryID, otherName, otherEntryID string) error {
	return nil
}

func (r *recorder) Close(context.Context, bool) error { return nil }

const sample = `ID   A4_HUMAN                Reviewed;         770 AA.
AC   P05067; B2R5V1; B4DII8;
DT   01-NOV-1988, integrated into UniProtKB/Swiss-Prot.
DT   13-SEP-2023, entry version 311.
DE   RecName: Full=Amyloid-beta precursor protein;
DE            Short=APP;
DE            EC=3.4.21.-;
DE   AltName: Full=Alzheimer disease amyloid protein;
GN   Name=APP; Synonyms=A4,
GN   AD1;
OS   Homo sapiens (Human).
OC   Eukaryota; Metazoa; Chordata.
RN   [1]
RX   PubMed=2881207; DOI=10.1038/325733a0;
RA   Kang J., Lemaire H.-G.;
CC   -!- FUNCTION: Functions as a cell surface receptor.
CC   -----------------------------------------------------------------------
CC   Copyrighted by the UniProt Consortium, see https://www.uniprot.org/terms
CC   Distributed under the Creative Commons Attribution (CC BY 4.0) License
CC   -----------------------------------------------------------------------
DR   EMBL; Y00264; CAA68374.1; -; mRNA.
KW   3D-structure; Alzheimer disease.
XX
SQ   SEQUENCE   12 AA;  1234 MW;  A12EE761403740F5 CRC64;
     MLPGLALLLL AA
//
ID   TEST_HUMAN              Reviewed;         3 AA.
AC   Q00001;
SQ   SEQUENCE   3 AA;  300 MW;  0000000000000000 CRC64;
     MKV
//
`

func TestIndex(t *testing.T) {
	db := newRecorder()
	n, err := Index(context.Background(), strings.NewReader(sample), db)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	const id = "A4_HUMAN"
	assert.Equal(t, []string{id}, db.unique[id]["id"])
	assert.Equal(t, []string{"P05067", "B2R5V1", "B4DII8"}, db.strings[id]["ac"])
	assert.Equal(t, []time.Time{
		time.Date(1988, time.November, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.September, 13, 0, 0, 0, 0, time.UTC),
	}, db.dates[id]["dt"])
	assert.Equal(t, []string{"Amyloid-beta precursor protein"}, db.strings[id]["title"])
	assert.Equal(t, []string{"3.4.21.-"}, db.strings[id]["ec"])
	assert.Equal(t, []string{"APP", "A4", "AD1"}, db.strings[id]["gn"])
	assert.Equal(t, []string{"Eukaryota", "Metazoa", "Chordata"}, db.strings[id]["oc"])
	assert.Equal(t, []string{"3D-structure", "Alzheimer disease"}, db.strings[id]["kw"])
	assert.Equal(t, []string{"2881207"}, db.strings[id]["pubmed"])
	assert.Equal(t, []string{"10.1038/325733a0"}, db.strings[id]["doi"])
	assert.Equal(t, []string{"[1]", "Kang J., Lemaire H.-G.;"}, db.strings[id]["ref"])
	assert.Equal(t, []string{"A12EE761403740F5"}, db.strings[id]["crc64"])
	assert.Equal(t, []float64{12}, db.numbers[id]["length"])
	assert.Equal(t, []float64{1234}, db.numbers[id]["mw"])
	assert.Equal(t, "MLPGLALLLLAA", db.sequences[id])

	assert.Equal(t, []string{"Homo sapiens (Human)."}, db.texts[id]["os"])
	assert.Equal(t, []string{"EMBL; Y00264; CAA68374.1; -; mRNA."}, db.texts[id]["dr"])
	require.Len(t, db.texts[id]["de"], 1)
	assert.Contains(t, db.texts[id]["de"][0], "Alzheimer disease amyloid protein")
	require.Len(t, db.texts[id]["cc"], 1)
	assert.Contains(t, db.texts[id]["cc"][0], "cell surface receptor")
	assert.NotContains(t, db.texts[id]["cc"][0], "Copyrighted")
	assert.NotContains(t, db.texts, "xx")

	assert.Equal(t, "MKV", db.sequences["TEST_HUMAN"])
	assert.Equal(t, []string{"Q00001"}, db.strings["TEST_HUMAN"]["ac"])
	assert.Empty(t, db.texts["TEST_HUMAN"]["de"], "fields must not leak across entries")
}

func TestIndex_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"data before ID", "AC   P05067;\n"},
		{"bad date", "ID   X_HUMAN\nDT   32-XYZ-1988, integrated.\n"},
		{"bad length", "ID   X_HUMAN\nSQ   SEQUENCE   lots AA;\n"},
		{"empty ID", "ID   \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Index(context.Background(), strings.NewReader(tt.input), newRecorder())
			assert.Error(t, err)
		})
	}
}

func TestIndex_NoTrailingNewline(t *testing.T) {
	db := newRecorder()
	n, err := Index(context.Background(), strings.NewReader("ID   X_HUMAN\n     MKV\n//"), db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "MKV", db.sequences["X_HUMAN"])
}

func TestIndex_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Index(ctx, strings.NewReader(sample), newRecorder())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStripBanner(t *testing.T) {
	text := "-!- FUNCTION: Binds.\n" +
		"-----\n" + bannerCopyright + "\n" + bannerLicense + "\n-----\n"
	assert.Equal(t, "-!- FUNCTION: Binds.\n", stripBanner(text))
	assert.Equal(t, "no banner\n", stripBanner("no banner\n"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, splitList(" a; b c;"))
	assert.Empty(t, splitList(" ; "))
}
