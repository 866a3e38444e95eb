package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/prs/internal/input"
	"github.com/mesh-intelligence/prs/internal/logger"
	"github.com/mesh-intelligence/prs/internal/mmcif"
	"github.com/mesh-intelligence/prs/internal/pdb"
	"github.com/mesh-intelligence/prs/internal/sqlite"
	"github.com/mesh-intelligence/prs/internal/uniprot"
	"github.com/mesh-intelligence/prs/pkg/types"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build new generations of databanks from source files",
	}
	cmd.AddCommand(newIndexUniprotCmd(a))
	cmd.AddCommand(newIndexStructureCmd(a, "pdb", "PDB format", pdbIndexer))
	cmd.AddCommand(newIndexStructureCmd(a, "mmcif", "PDBx/mmCIF", mmcif.Index))
	return cmd
}

func newIndexUniprotCmd(a *app) *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "uniprot --name NAME [--name NAME]... FILE...",
		Short: "Index UniProtKB flat files",
		Long: "Build a new generation of every named databank from the given UniProtKB .dat files\n" +
			"(optionally gzipped). Builds of different names run concurrently.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			if len(names) == 0 {
				return fmt.Errorf("%w: at least one --name is required", errUsage)
			}
			if dup := firstDuplicate(names); dup != "" {
				return fmt.Errorf("%w: databank %q named twice", errUsage, dup)
			}

			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			g, ctx := errgroup.WithContext(cmd.Context())
			for _, name := range names {
				g.Go(func() error {
					return backend.Build(ctx, name, func(db types.Databank) error {
						for _, path := range files {
							err := indexFile(ctx, a.log, db, path, func(r io.Reader) (int, error) {
								return uniprot.Index(ctx, r, db)
							})
							if err != nil {
								return err
							}
						}
						return nil
					})
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, name := range names {
				gen, err := backend.Current(cmd.Context(), name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Committed %s generation %d\n", name, gen.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&names, "name", nil, "databank to build (repeatable)")
	return cmd
}

// structureIndexer records the structures of one file in the atom and
// seqres databanks and returns how many it read.
type structureIndexer func(ctx context.Context, r io.Reader, atom, seqres types.Databank) (int, error)

func pdbIndexer(ctx context.Context, r io.Reader, atom, seqres types.Databank) (int, error) {
	if err := pdb.Index(ctx, r, atom, seqres); err != nil {
		return 0, err
	}
	return 1, nil
}

func newIndexStructureCmd(a *app, use, format string, index structureIndexer) *cobra.Command {
	return &cobra.Command{
		Use:   use + " FILE...",
		Short: "Index " + format + " coordinate files",
		Long: fmt.Sprintf("Build new generations of %s and %s from the given %s files (optionally gzipped).\n"+
			"Chains referencing UniProt link to the current sprot and uniprot generations.",
			pdb.AtomDatabank, pdb.SeqresDatabank, format),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			if err := indexStructures(cmd.Context(), backend, a.log, files, index); err != nil {
				return err
			}
			for _, name := range []string{pdb.AtomDatabank, pdb.SeqresDatabank} {
				gen, err := backend.Current(cmd.Context(), name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Committed %s generation %d\n", name, gen.ID)
			}
			return nil
		},
	}
}

// indexStructures feeds every file into one pdb_atom and one pdb_seqres
// session. The two sessions commit independently: both are discarded when
// indexing fails, but a failed commit of one does not roll back the other.
func indexStructures(ctx context.Context, backend *sqlite.Backend, log *logger.Logger, files []string, index structureIndexer) error {
	atom, err := backend.Open(ctx, pdb.AtomDatabank)
	if err != nil {
		return err
	}
	seqres, err := backend.Open(ctx, pdb.SeqresDatabank)
	if err != nil {
		return errors.Join(err, atom.Close(ctx, false))
	}

	for _, path := range files {
		err = indexFile(ctx, log, atom, path, func(r io.Reader) (int, error) {
			return index(ctx, r, atom, seqres)
		})
		if err != nil {
			break
		}
	}

	ok := err == nil
	return errors.Join(err, atom.Close(ctx, ok), seqres.Close(ctx, ok))
}

// indexFile opens path and runs index over its contents.
func indexFile(ctx context.Context, log *logger.Logger, db types.Databank, path string, index func(io.Reader) (int, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := input.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := index(f)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	log.Info().
		Str("databank", db.Name()).
		Int64("generation", db.Generation().ID).
		Str("file", path).
		Int("entries", entries).
		Msg("file indexed")
	return nil
}

func firstDuplicate(names []string) string {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return sorted[i]
		}
	}
	return ""
}
