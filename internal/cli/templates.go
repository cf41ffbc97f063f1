package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTemplatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage enrolled templates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List enrolled keys",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			keys, err := svc.Templates()
			if err != nil {
				return err
			}
			return renderTemplates(cmd.OutOrStdout(), cfg.Output.Format, keys)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"rm"},
		Short:   "Delete the template for a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := svc.DeleteTemplate(args[0]); err != nil {
				return err
			}
			if cfg.Output.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return err
		},
	})

	return cmd
}
