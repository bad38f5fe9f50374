package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrewiankidd/crosspose-sub000/internal/version"
)

func newVersionCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No configuration needed; skip the root PreRun.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()

			line := info.String()
			if asJSON {
				var err error
				if line, err = info.JSON(); err != nil {
					return err
				}
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), line)

			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output version info as JSON")

	return cmd
}
