package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/prs/pkg/types"
)

// generationView is the JSON form of a catalog row.
type generationView struct {
	types.Generation
	Current bool `json:"current"`
}

func newGenerationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generations [NAME]...",
		Short: "List the generations in the catalog",
		Long:  "List the catalog rows of the named databanks, or of every databank when no name is given.\nUncommitted rows belong to builds in progress or to builds that crashed.",
		RunE: func(cmd *cobra.Command, names []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			ctx := cmd.Context()
			catalog, err := backend.Catalog()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				if names, err = catalog.Names(ctx); err != nil {
					return err
				}
			}

			views, err := generationViews(ctx, catalog, names)
			if err != nil {
				return err
			}

			if a.jsonMode {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}
			return printGenerations(cmd.OutOrStdout(), views)
		},
	}
}

// catalogReader is the part of the catalog the listing reads.
type catalogReader interface {
	Generations(ctx context.Context, name string) ([]types.Generation, error)
	Resolve(ctx context.Context, name string) (int64, error)
}

// generationViews lists the catalog rows of names and marks the current one.
// A name that was never committed has no current row.
func generationViews(ctx context.Context, catalog catalogReader, names []string) ([]generationView, error) {
	var views []generationView
	for _, name := range names {
		gens, err := catalog.Generations(ctx, name)
		if err != nil {
			return nil, err
		}
		current, err := catalog.Resolve(ctx, name)
		if errors.Is(err, types.ErrGenerationNotFound) {
			current = 0
		} else if err != nil {
			return nil, err
		}
		for _, g := range gens {
			views = append(views, generationView{Generation: g, Current: g.ID == current})
		}
	}
	return views, nil
}

func printGenerations(out io.Writer, views []generationView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tCREATED\tCOMMITTED\tCURRENT")
	for _, v := range views {
		committed := "-"
		if v.Committed() {
			committed = v.CommittedAt.Format(time.RFC3339)
		}
		current := ""
		if v.Current {
			current = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			v.Name, v.ID, v.CreatedAt.Format(time.RFC3339), committed, current)
	}
	return w.Flush()
}
