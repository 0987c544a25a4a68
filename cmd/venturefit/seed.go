package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joelkehle/venturefit/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed-ventures VENTURES.yaml",
	Short: "Validate and store venture profiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		profiles, err := store.LoadVentureFile(args[0])
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "%d venture profiles are valid\n", len(profiles))
			return nil
		}

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close(context.Background())

		n, err := store.SeedVentures(ctx, rt.store, profiles)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %d venture profiles\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Bool("dry-run", false, "only validate the file")
}
