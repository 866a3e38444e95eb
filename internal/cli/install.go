package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Create the databank store",
		Long:  "Create the configuration and data directories, then create the store's tables and indexes.\nRunning install again is harmless.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			if err := backend.Install(cmd.Context()); err != nil {
				return fmt.Errorf("install schema: %w", err)
			}

			a.log.Info().Msg("store installed")
			fmt.Fprintln(cmd.OutOrStdout(), "Databank store installed")
			return nil
		},
	}
}
