package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/prs/pkg/types"
)

var errEntryNotFound = errors.New("entry not found")

// sequenceWidth is the line width of sequences in text output.
const sequenceWidth = 60

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME ENTRY",
		Short: "Show an entry of the current generation of a databank",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, entryID := args[0], args[1]

			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			entry, err := backend.Entry(cmd.Context(), name, entryID)
			if err != nil {
				return err
			}
			if entry.Empty() {
				return fmt.Errorf("%w: %s in %s", errEntryNotFound, entryID, name)
			}

			if a.jsonMode {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entry)
			}
			printEntry(cmd.OutOrStdout(), entry)
			return nil
		},
	}
}

func printEntry(out io.Writer, e *types.Entry) {
	fmt.Fprintf(out, "%s:%s (generation %d)\n", e.Databank, e.EntryID, e.GenerationID)
	printValues(out, "unique", e.UniqueStrings, func(s string) string { return s })
	printValues(out, "string", e.Strings, func(s string) string { return s })
	printValues(out, "number", e.Numbers, func(n float64) string { return fmt.Sprint(n) })
	printValues(out, "date", e.Dates, func(d time.Time) string { return d.Format("2006-01-02") })
	printValues(out, "words", e.Words, func(s string) string { return s })
	for _, l := range e.Links {
		fmt.Fprintf(out, "link\t%d:%s\n", l.OtherGenerationID, l.OtherEntryID)
	}
	if e.Sequence != "" {
		fmt.Fprintf(out, "sequence\t%d aa\n", len(e.Sequence))
		for s := e.Sequence; len(s) > 0; {
			n := min(sequenceWidth, len(s))
			fmt.Fprintf(out, "  %s\n", s[:n])
			s = s[n:]
		}
	}
}

// printValues prints one line per key, keys sorted.
func printValues[V any](out io.Writer, kind string, values map[string][]V, format func(V) string) {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		parts := make([]string, len(values[key]))
		for i, v := range values[key] {
			parts[i] = format(v)
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", kind, key, strings.Join(parts, "; "))
	}
}
