package mmcif

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/prs/internal/indextest"
	"github.com/mesh-intelligence/prs/internal/pdb"
)

const sample = `data_1ABC
#
_entry.id 1ABC
#
_struct.entry_id 1ABC
_struct.title 'Crystal structure of human hemoglobin'
#
_struct_keywords.entry_id 1ABC
_struct_keywords.pdbx_keywords 'OXYGEN TRANSPORT'
_struct_keywords.text 'heme, globin'
#
_exptl.entry_id 1ABC
_exptl.method 'X-RAY DIFFRACTION'
#
_refine.entry_id 1ABC
_refine.ls_d_res_high 1.80
#
loop_
_entity.id
_entity.type
_entity.pdbx_description
_entity.pdbx_ec
_entity.pdbx_mutation
_entity.pdbx_fragment
_entity.details
1 polymer 'Hemoglobin alpha chain' 1.2.3.4 E6V ? ?
2 non-polymer 'PROTOPORPHYRIN IX' ? ? ? ?
3 water water ? ? ? ?
#
_entity_name_com.entity_id 1
_entity_name_com.name 'Haemoglobin'
#
_entity_poly.entity_id 1
_entity_poly.type polypeptide(L)
#
loop_
_audit_author.name
_audit_author.pdbx_ordinal
'Smith, J.' 1
'Jones, A.' 2
#
loop_
_citation.id
_citation.title
_citation.journal_abbrev
primary 'Hemoglobin structure' 'J.Mol.Biol.'
?       'Unpublished note'     ?
#
loop_
_struct_ref.id
_struct_ref.db_name
_struct_ref.db_code
1 UNP HBA_HUMAN
2 GB  AAA12345
#
loop_
_pdbx_poly_seq_scheme.asym_id
_pdbx_poly_seq_scheme.seq_id
_pdbx_poly_seq_scheme.mon_id
A 1 VAL
A 2 LEU
A 3 SER
B 1 UNK
B 2 UNK
#
loop_
_atom_site.group_PDB
_atom_site.id
_atom_site.auth_atom_id
_atom_site.label_alt_id
_atom_site.auth_comp_id
_atom_site.label_asym_id
_atom_site.pdbx_PDB_model_num
ATOM   1 N  . VAL A 1
ATOM   2 CA . VAL A 1
ATOM   3 CA A LEU A 1
ATOM   4 CA B LEU A 1
ATOM   5 CA . UNK B 1
HETATM 6 FE . HEM C 1
HETATM 7 O  . HOH D 1
ATOM   8 CA . SER A 2
HETATM 9 C1 . NAG E 2
#
`

func TestIndex(t *testing.T) {
	atom, seqres := indextest.NewRecorder(pdb.AtomDatabank), indextest.NewRecorder(pdb.SeqresDatabank)
	n, err := Index(context.Background(), strings.NewReader(sample), atom, seqres)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, db := range []*indextest.Recorder{atom, seqres} {
		t.Run(db.Name(), func(t *testing.T) {
			assert.Equal(t, []indextest.Fact{{Entry: "1abc", Key: "id", Value: "1abc"}}, db.Unique)
			assert.Equal(t, "Crystal structure of human hemoglobin", db.TextOf("1abc", "title"))
			assert.Equal(t, "OXYGEN TRANSPORTheme, globin", db.TextOf("1abc", "keywords"))
			assert.Equal(t, []string{"X-RAY DIFFRACTION"}, db.StringsOf("1abc", "method"))
			assert.Equal(t, 1.80, db.Numbers["1abc/resolution"])
			assert.Equal(t, "Hemoglobin alpha chainHaemoglobinpolypeptide(L)", db.TextOf("1abc", "molecule"))
			assert.Equal(t, []string{"1.2.3.4"}, db.StringsOf("1abc", "ec"))
			assert.Equal(t, "E6V", db.TextOf("1abc", "mutation"))
			assert.Equal(t, []string{"Smith, J.", "Jones, A."}, db.StringsOf("1abc", "author"))
			assert.Equal(t, "Hemoglobin structureJ.Mol.Biol.", db.TextOf("1abc", "reference"))
			assert.Equal(t, []indextest.Link{{Entry: "1abc", Target: "uniprot", OtherEntry: "HBA_HUMAN"}}, db.Links)
			assert.Equal(t, []string{"AAA12345"}, db.StringsOf("1abc", "GB"))
			assert.Equal(t, []string{"HEM", "NAG"}, db.StringsOf("1abc", "ligand"))
			assert.Equal(t, 2.0, db.Numbers["1abc/model_count"])
		})
	}

	// Model 1 CA atoms, first alternate location only; all-unknown chains
	// are dropped.
	assert.Equal(t, map[string]string{"1abc.A": "VL"}, atom.Sequences)
	assert.Equal(t, map[string]string{"1abc.A": "VLS"}, seqres.Sequences)
}

func TestIndex_MultipleBlocks(t *testing.T) {
	input := "data_1AAA\n_entry.id 1AAA\n" +
		"data_2BBB\n_struct_keywords.entry_id 2BBB\n_entity_poly.type polypeptide(L)\n"
	atom, seqres := indextest.NewRecorder(pdb.AtomDatabank), indextest.NewRecorder(pdb.SeqresDatabank)
	n, err := Index(context.Background(), strings.NewReader(input), atom, seqres)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []indextest.Fact{
		{Entry: "1aaa", Key: "id", Value: "1aaa"},
		{Entry: "2bbb", Key: "id", Value: "2bbb"},
	}, atom.Unique)
	assert.Equal(t, 0.0, atom.Numbers["1aaa/model_count"])
}

func TestIndex_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad resolution", "data_1ABC\n_refine.ls_d_res_high high\n", "parsing resolution"},
		{"atom_site missing column", "data_1ABC\nloop_\n_atom_site.group_PDB\nATOM\n", "atom_site without"},
		{"unnamed block", "data_\n_entry.id x\n", "without name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atom, seqres := indextest.NewRecorder(pdb.AtomDatabank), indextest.NewRecorder(pdb.SeqresDatabank)
			_, err := Index(context.Background(), strings.NewReader(tt.input), atom, seqres)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	t.Run("no block", func(t *testing.T) {
		atom, seqres := indextest.NewRecorder(pdb.AtomDatabank), indextest.NewRecorder(pdb.SeqresDatabank)
		_, err := Index(context.Background(), strings.NewReader("# empty\n"), atom, seqres)
		assert.ErrorIs(t, err, ErrNoBlock)
	})
}

func TestIndex_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	atom, seqres := indextest.NewRecorder(pdb.AtomDatabank), indextest.NewRecorder(pdb.SeqresDatabank)
	_, err := Index(ctx, strings.NewReader(sample), atom, seqres)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, atom.Unique)
}
