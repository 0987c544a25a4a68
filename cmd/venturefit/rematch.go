package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joelkehle/venturefit/internal/backfill"
)

var rematchCmd = &cobra.Command{
	Use:   "rematch",
	Short: "Recompute venture matches for every stored result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		stop, _ := cmd.Flags().GetBool("stop-on-error")

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close(context.Background())

		rep, err := backfill.Run(ctx, rt.store, rt.svc, backfill.Options{
			Concurrency: rt.cfg.Backfill.Concurrency,
			StopOnError: stop,
			Logger:      rt.log,
			Tracer:      rt.tracer,
			Metrics:     rt.metrics,
		})
		if err != nil {
			return err
		}
		for _, f := range rep.Failures {
			rt.log.Error("result not rematched", zap.String("result_id", f.ResultID), zap.Error(f.Err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rematched %d of %d results (%d matches, %d failed)\n",
			rep.Rematched, rep.Total, rep.Matches, len(rep.Failures))
		if len(rep.Failures) > 0 {
			return fmt.Errorf("%d results failed", len(rep.Failures))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rematchCmd)

	rematchCmd.Flags().Int("concurrency", 4, "results processed in parallel")
	rematchCmd.Flags().Bool("stop-on-error", false, "stop at the first failed result")
	viper.BindPFlag("backfill.concurrency", rematchCmd.Flags().Lookup("concurrency"))
}
