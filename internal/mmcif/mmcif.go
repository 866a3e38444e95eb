// Package mmcif indexes PDBx/mmCIF coordinate files into the same two
// databanks as the PDB format indexer: the sequences observed in the atom
// sites go to pdb_atom, the sequences of the polymer scheme to pdb_seqres.
// Both get the same descriptive facts.
package mmcif

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/prs/internal/pdb"
	"github.com/mesh-intelligence/prs/pkg/types"
)

// ErrNoBlock is returned for input without a data block.
var ErrNoBlock = errors.New("no data block")

// Index reads every data block of an mmCIF file from r and records each as
// one structure in atom and seqres. It returns the number of structures.
func Index(ctx context.Context, r io.Reader, atom, seqres types.Databank) (int, error) {
	n := 0
	err := Read(r, func(b *Block) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ix := &indexer{atom: atom, seqres: seqres, block: b, id: strings.ToLower(b.Name)}
		if ix.id == "" {
			return fmt.Errorf("data block without name")
		}
		if err := ix.index(); err != nil {
			return fmt.Errorf("structure %s: %w", ix.id, err)
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrNoBlock
	}
	return n, nil
}

// indexer records one data block.
type indexer struct {
	atom, seqres types.Databank
	block        *Block
	id           string
}

// both applies op to the atom and seqres databanks.
func (ix *indexer) both(op func(types.Databank) error) error {
	if err := op(ix.atom); err != nil {
		return err
	}
	return op(ix.seqres)
}

func (ix *indexer) index() error {
	steps := []func() error{
		ix.entryID,
		ix.keywords,
		ix.methods,
		ix.resolution,
		ix.title,
		ix.entities,
		ix.authors,
		ix.citations,
		ix.references,
		ix.sequences,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// present reports whether v holds a value: CIF writes ? for unknown and .
// for not applicable.
func present(v string) bool {
	return v != "" && v != "?" && v != "."
}

// entryID records the PDB id once, from the first category that names it.
func (ix *indexer) entryID() error {
	for _, src := range [][2]string{
		{"struct_keywords", "entry_id"},
		{"entry", "id"},
		{"struct", "entry_id"},
	} {
		if v, ok := ix.block.Category(src[0]).Value(0, src[1]); ok && present(v) {
			id := strings.ToLower(v)
			return ix.both(func(db types.Databank) error { return db.IndexUniqueString(ix.id, "id", id) })
		}
	}
	return nil
}

func (ix *indexer) keywords() error {
	c := ix.block.Category("struct_keywords")
	for _, item := range []string{"pdbx_keywords", "text"} {
		for _, v := range c.Column(item) {
			if err := ix.text("keywords", v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ix *indexer) methods() error {
	for _, method := range ix.block.Category("exptl").Column("method") {
		if !present(method) {
			continue
		}
		if err := ix.both(func(db types.Databank) error { return db.IndexString(ix.id, "method", method) }); err != nil {
			return err
		}
	}
	return nil
}

func (ix *indexer) resolution() error {
	for _, v := range ix.block.Category("refine").Column("ls_d_res_high") {
		if !present(v) {
			continue
		}
		resolution, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing resolution %q: %w", v, err)
		}
		if err := ix.both(func(db types.Databank) error { return db.IndexNumber(ix.id, "resolution", resolution) }); err != nil {
			return err
		}
	}
	return nil
}

func (ix *indexer) title() error {
	for _, v := range ix.block.Category("struct").Column("title") {
		if err := ix.text("title", v); err != nil {
			return err
		}
	}
	return nil
}

// entities records the descriptions of the polymer entities.
func (ix *indexer) entities() error {
	c := ix.block.Category("entity")
	for i := range c.Len() {
		if typ, _ := c.Value(i, "type"); typ != "polymer" {
			continue
		}
		for _, item := range []string{"pdbx_description", "pdbx_fragment", "details"} {
			v, _ := c.Value(i, item)
			if err := ix.text("molecule", v); err != nil {
				return err
			}
		}
		if ec, _ := c.Value(i, "pdbx_ec"); present(ec) {
			if err := ix.both(func(db types.Databank) error { return db.IndexString(ix.id, "ec", ec) }); err != nil {
				return err
			}
		}
		mutation, _ := c.Value(i, "pdbx_mutation")
		if err := ix.text("mutation", mutation); err != nil {
			return err
		}
	}

	for _, v := range ix.block.Category("entity_name_com").Column("name") {
		if err := ix.text("molecule", v); err != nil {
			return err
		}
	}
	for _, v := range ix.block.Category("entity_poly").Column("type") {
		if err := ix.text("molecule", v); err != nil {
			return err
		}
	}
	return nil
}

func (ix *indexer) authors() error {
	for _, name := range ix.block.Category("audit_author").Column("name") {
		if !present(name) {
			continue
		}
		if err := ix.both(func(db types.Databank) error { return db.IndexString(ix.id, "author", name) }); err != nil {
			return err
		}
	}
	return nil
}

// citations records every field of every citation as reference text.
func (ix *indexer) citations() error {
	c := ix.block.Category("citation")
	if c == nil {
		return nil
	}
	for i, row := range c.Rows {
		if id, _ := c.Value(i, "id"); !present(id) {
			continue
		}
		for col, item := range c.Items {
			if item == "id" {
				continue
			}
			if err := ix.text("reference", row[col]); err != nil {
				return err
			}
		}
	}
	return nil
}

// references records the sequence database references of the structure.
// UniProt references become links; any other database is kept as a string
// under its database name.
func (ix *indexer) references() error {
	c := ix.block.Category("struct_ref")
	for i := range c.Len() {
		database, _ := c.Value(i, "db_name")
		code, _ := c.Value(i, "db_code")
		if !present(database) || !present(code) {
			continue
		}
		var err error
		if target, ok := pdb.LinkTarget(database); ok {
			err = ix.both(func(db types.Databank) error { return db.IndexLink(ix.id, target, code) })
		} else {
			err = ix.both(func(db types.Databank) error { return db.IndexString(ix.id, database, code) })
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// sequences records the chain sequences, the ligands and the model count.
func (ix *indexer) sequences() error {
	atoms := newChains()
	ligands := make(map[string]struct{})
	models := make(map[string]struct{})

	sites := ix.block.Category("atom_site")
	if sites != nil {
		cols := make(map[string]int)
		for _, item := range []string{"group_pdb", "pdbx_pdb_model_num", "auth_comp_id", "label_asym_id", "auth_atom_id", "label_alt_id"} {
			col := sites.column(item)
			if col < 0 {
				return fmt.Errorf("atom_site without %s", item)
			}
			cols[item] = col
		}
		for _, row := range sites.Rows {
			model := row[cols["pdbx_pdb_model_num"]]
			residue := row[cols["auth_comp_id"]]
			models[model] = struct{}{}
			if residue == "HOH" {
				continue
			}

			switch row[cols["group_pdb"]] {
			case "ATOM":
				alt := row[cols["label_alt_id"]]
				if model == "1" && row[cols["auth_atom_id"]] == "CA" && (alt == "." || alt == "A") {
					atoms.add(row[cols["label_asym_id"]], pdb.OneLetter(residue))
				}
			case "HETATM":
				ligands[residue] = struct{}{}
			}
		}
	}

	seqres := newChains()
	scheme := ix.block.Category("pdbx_poly_seq_scheme")
	chainIDs, residues := scheme.Column("asym_id"), scheme.Column("mon_id")
	if scheme != nil && (chainIDs == nil || residues == nil) {
		return fmt.Errorf("pdbx_poly_seq_scheme without asym_id or mon_id")
	}
	for i := range chainIDs {
		seqres.add(chainIDs[i], pdb.OneLetter(residues[i]))
	}

	names := make([]string, 0, len(ligands))
	for l := range ligands {
		names = append(names, l)
	}
	slices.Sort(names)
	for _, l := range names {
		if err := ix.both(func(db types.Databank) error { return db.IndexString(ix.id, "ligand", l) }); err != nil {
			return err
		}
	}

	if err := atoms.store(ix.atom, ix.id); err != nil {
		return err
	}
	if err := seqres.store(ix.seqres, ix.id); err != nil {
		return err
	}

	count := float64(len(models))
	return ix.both(func(db types.Databank) error { return db.IndexNumber(ix.id, "model_count", count) })
}

// text records v under key as text in both databanks, when present.
func (ix *indexer) text(key, v string) error {
	if !present(v) {
		return nil
	}
	return ix.both(func(db types.Databank) error { return db.IndexText(ix.id, key, v) })
}

// chains collects one sequence per chain, in order of first appearance.
type chains struct {
	order []string
	seqs  map[string]*strings.Builder
}

func newChains() *chains {
	return &chains{seqs: make(map[string]*strings.Builder)}
}

func (c *chains) add(chain string, residue byte) {
	b, ok := c.seqs[chain]
	if !ok {
		b = &strings.Builder{}
		c.seqs[chain] = b
		c.order = append(c.order, chain)
	}
	b.WriteByte(residue)
}

// store sets the sequence of every chain as entry <id>.<chain>. Chains made
// only of unknown residues are skipped.
func (c *chains) store(db types.Databank, id string) error {
	for _, chain := range c.order {
		seq := c.seqs[chain].String()
		if strings.Trim(seq, "X") == "" {
			continue
		}
		if err := db.SetSequence(id+"."+chain, seq); err != nil {
			return err
		}
	}
	return nil
}
