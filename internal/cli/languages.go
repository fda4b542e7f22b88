package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLanguagesCommand(a *app) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:     "languages",
		Aliases: []string{"langs"},
		Short:   "List supported language identifiers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.dispatcher()
			out := cmd.OutOrStdout()

			if !status {
				for _, lang := range d.Languages() {
					fmt.Fprintln(out, lang)
				}
				return nil
			}

			fmt.Fprintln(out, renderStatus(d.Status()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "also check whether each runtime is available")
	return cmd
}
