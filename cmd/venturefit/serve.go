package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joelkehle/venturefit/internal/httpapi"
	"github.com/joelkehle/venturefit/internal/report"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}

	h := httpapi.NewServer(httpapi.Deps{
		Service:  rt.svc,
		Reports:  report.NewBuilder(rt.cfg.Report.WebDir, report.NewChromiumPDFRenderer()),
		Health:   rt.store.Health,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   rt.log,
		Tracer:   rt.tracer,
		Metrics:  rt.metrics,
	})
	srv := &http.Server{
		Addr:              rt.cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.log.Info("starting venturefit", zap.String("version", version), zap.String("addr", rt.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		rt.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
		rt.Close(shutdownCtx)
		return err
	}
	rt.Close(context.Background())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
