package cmd

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.database(); err != nil {
				return err
			}
			opts.log.Info("migrations applied")
			return nil
		},
	}
}
