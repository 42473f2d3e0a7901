package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"venue-backend/services"
)

func newSequenceCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Inspect and advance document number counters",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reserve <scope>",
		Short: "Allocate and print the next number of scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.database()
			if err != nil {
				return err
			}
			code, err := services.NewSequenceService(db, opts.log).ReserveNext(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "current <scope>",
		Short: "Print the last number issued for scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.database()
			if err != nil {
				return err
			}
			n, err := services.NewSequenceService(db, opts.log).Current(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ensure <scope> <min>",
		Short: "Advance the counter of scope to at least min",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			min, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("min must be an integer: %w", err)
			}
			db, err := opts.database()
			if err != nil {
				return err
			}
			return services.NewSequenceService(db, opts.log).EnsureAtLeast(cmd.Context(), args[0], min)
		},
	})

	return cmd
}
