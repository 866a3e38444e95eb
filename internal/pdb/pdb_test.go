package pdb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/prs/internal/indextest"
)

const sample = `
HEADER    OXYGEN TRANSPORT                        09-DEC-92   1ABC
TITLE     CRYSTAL STRUCTURE OF HUMAN HEMOGLOBIN
COMPND    MOL_ID: 1;
COMPND   2 MOLECULE: HEMOGLOBIN ALPHA CHAIN;
COMPND   3 EC: 1.2.3.4;
SOURCE    MOL_ID: 1;
SOURCE   2 ORGANISM_SCIENTIFIC: HOMO SAPIENS;
KEYWDS    OXYGEN TRANSPORT, HEME
EXPDTA    X-RAY DIFFRACTION
AUTHOR    J.SMITH,A.JONES
REVDAT   1   09-DEC-92 1ABC
JRNL        AUTH   J.SMITH
JRNL        TITL   HEMOGLOBIN STRUCTURE
REMARK   2 RESOLUTION.    1.80 ANGSTROMS.
DBREF  1ABC A    1   141  UNP    P69905   HBA_HUMAN        1    141
DBREF  1ABC B    1   141  GB     12345    AAA12345         1    141
SEQRES   1 A    3  VAL LEU SER
SEQRES   1 B    2  GLY UNK
MODEL        1
ATOM      1 N    VAL A   1      11.104   6.134  -6.504  1.00  0.00           C
ATOM      2 CA   VAL A   1      11.104   6.134  -6.504  1.00  0.00           C
ATOM      3 CA  ALEU A   2      11.104   6.134  -6.504  1.00  0.00           C
ATOM      4 CA  BLEU A   2      11.104   6.134  -6.504  1.00  0.00           C
ATOM      5 CA   GLY B   1      11.104   6.134  -6.504  1.00  0.00           C
HETATM    6 FE   HEM A 201      11.104   6.134  -6.504  1.00  0.00           C
HETATM    7 O    HOH A 301      11.104   6.134  -6.504  1.00  0.00           C
ENDMDL
MODEL        2
ATOM      8 CA   SER A   3      11.104   6.134  -6.504  1.00  0.00           C
HETATM    9 C1   NAG A 401      11.104   6.134  -6.504  1.00  0.00           C
ENDMDL
END
`

func TestIndex(t *testing.T) {
	atom, seqres := indextest.NewRecorder(AtomDatabank), indextest.NewRecorder(SeqresDatabank)
	require.NoError(t, Index(context.Background(), strings.NewReader(sample), atom, seqres))

	for _, db := range []*indextest.Recorder{atom, seqres} {
		t.Run(db.Name(), func(t *testing.T) {
			assert.Equal(t, []indextest.Fact{{Entry: "1ABC", Key: "id", Value: "1ABC"}}, db.Unique)
			assert.Equal(t, "CRYSTAL STRUCTURE OF HUMAN HEMOGLOBIN ", db.TextOf("1ABC", "title"))
			assert.Equal(t, []string{"hemoglobin alpha chain"}, db.StringsOf("1ABC", "molecule"))
			assert.Equal(t, []string{"1.2.3.4"}, db.StringsOf("1ABC", "ec"))
			assert.Equal(t, []string{"OXYGEN TRANSPORT", "HEME"}, db.StringsOf("1ABC", "keyword"))
			assert.Equal(t, []string{"X-RAY DIFFRACTION"}, db.StringsOf("1ABC", "method"))
			assert.Equal(t, []string{"J.SMITH", "A.JONES"}, db.StringsOf("1ABC", "author"))
			assert.Equal(t, []string{"HEM"}, db.StringsOf("1ABC", "ligand"))
			assert.Equal(t, []time.Time{time.Date(1992, time.December, 9, 0, 0, 0, 0, time.UTC)}, db.Dates)
			assert.Contains(t, db.TextOf("1ABC", "source"), "HOMO SAPIENS")
			assert.Contains(t, db.TextOf("1ABC", "remark"), "RESOLUTION")
			assert.Contains(t, db.TextOf("1ABC", "reference"), "HEMOGLOBIN STRUCTURE")
			assert.Equal(t, 2.0, db.Numbers["1ABC/model_count"])

			assert.Equal(t, []indextest.Link{{Entry: "1ABC.A", Target: "uniprot", OtherEntry: "HBA_HUMAN"}}, db.Links)
			assert.Equal(t, []string{"AAA12345"}, db.StringsOf("1ABC.B", "GB"))
		})
	}

	// CA atoms of model 1, first alternate location only.
	assert.Equal(t, map[string]string{"1ABC.A": "VL", "1ABC.B": "G"}, atom.Sequences)
	assert.Equal(t, map[string]string{"1ABC.A": "VLS", "1ABC.B": "GX"}, seqres.Sequences)
}

func TestIndex_NoHeader(t *testing.T) {
	atom, seqres := indextest.NewRecorder(AtomDatabank), indextest.NewRecorder(SeqresDatabank)

	err := Index(context.Background(), strings.NewReader("TITLE     NOTHING\n"), atom, seqres)
	assert.ErrorIs(t, err, ErrNoHeader)

	err = Index(context.Background(), strings.NewReader(""), atom, seqres)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestIndex_SingleModel(t *testing.T) {
	atom, seqres := indextest.NewRecorder(AtomDatabank), indextest.NewRecorder(SeqresDatabank)
	input := strings.Join([]string{
		"HEADER    TEST                                    01-JAN-00   9XYZ",
		"ATOM      1  CA  MET A   1      11.104   6.134  -6.504  1.00  0.00           C",
	}, "\n")
	require.NoError(t, Index(context.Background(), strings.NewReader(input), atom, seqres))
	assert.Equal(t, 1.0, atom.Numbers["9XYZ/model_count"])
	assert.Equal(t, map[string]string{"9XYZ.A": "M"}, atom.Sequences)
	assert.Empty(t, seqres.Sequences)
}

func TestIndex_BlankChain(t *testing.T) {
	atom, seqres := indextest.NewRecorder(AtomDatabank), indextest.NewRecorder(SeqresDatabank)
	input := strings.Join([]string{
		"HEADER    TEST                                    01-JAN-00   9XYZ",
		"DBREF  9XYZ      1     3  UNP    P05067   A4_HUMAN         1      3",
		"SEQRES   1      3  VAL LEU SER",
		"ATOM      1  CA  MET     1      11.104   6.134  -6.504  1.00  0.00           C",
	}, "\n")
	require.NoError(t, Index(context.Background(), strings.NewReader(input), atom, seqres))

	assert.Equal(t, map[string]string{"9XYZ": "M"}, atom.Sequences)
	assert.Equal(t, map[string]string{"9XYZ": "VLS"}, seqres.Sequences)
	assert.Equal(t, []indextest.Link{{Entry: "9XYZ", Target: "uniprot", OtherEntry: "A4_HUMAN"}}, atom.Links)
}

func TestIndex_ShortDBREF(t *testing.T) {
	atom, seqres := indextest.NewRecorder(AtomDatabank), indextest.NewRecorder(SeqresDatabank)
	input := "HEADER    TEST                                    01-JAN-00   9XYZ\n" +
		"DBREF  9XYZ A    1     3\n"
	err := Index(context.Background(), strings.NewReader(input), atom, seqres)
	assert.ErrorContains(t, err, "DBREF without database reference")
}

func TestIndex_BadRevisionDate(t *testing.T) {
	atom, seqres := indextest.NewRecorder(AtomDatabank), indextest.NewRecorder(SeqresDatabank)
	input := "HEADER    TEST                                    01-JAN-00   9XYZ\n" +
		"REVDAT   1   99-XXX-92 9XYZ\n"
	err := Index(context.Background(), strings.NewReader(input), atom, seqres)
	assert.ErrorContains(t, err, "line 2")
}

func TestColumn(t *testing.T) {
	assert.Equal(t, "", column("ATOM", 10, 20))
	assert.Equal(t, "OM", column("ATOM", 2, 20))
	assert.Equal(t, "AT", column("ATOM", 0, 2))
}
