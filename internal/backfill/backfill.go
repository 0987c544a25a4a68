// Package backfill recomputes the venture matches of every stored result,
// typically after venture profiles have changed.
package backfill

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/venturefit/internal/assessment"
	"github.com/joelkehle/venturefit/internal/logger"
	"github.com/joelkehle/venturefit/internal/observability"
)

const defaultConcurrency = 4

type ResultLister interface {
	ListResults(ctx context.Context) ([]assessment.AssessmentResult, error)
}

// Rematcher replaces the match set of one result.
type Rematcher interface {
	Rematch(ctx context.Context, result assessment.AssessmentResult) ([]assessment.VentureMatch, error)
}

type Options struct {
	Concurrency int
	// StopOnError cancels remaining work after the first failure.
	StopOnError bool
	Logger      *zap.Logger
	Tracer      *observability.TracerProvider
	Metrics     *observability.Metrics
}

type Failure struct {
	ResultID string
	Err      error
}

type Report struct {
	Total     int
	Rematched int
	Matches   int
	Failures  []Failure
}

// Run rematches every result with bounded concurrency. Individual failures
// are collected in the report unless StopOnError is set.
func Run(ctx context.Context, results ResultLister, rm Rematcher, opts Options) (Report, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	log := logger.OrNop(opts.Logger).Named("backfill")

	ctx, span := opts.Tracer.StartSpan(ctx, observability.SpanRematch)
	defer span.End()

	all, err := results.ListResults(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list results: %w", err)
	}
	span.SetAttributes(attribute.Int("venturefit.result_count", len(all)))

	var (
		mu  sync.Mutex
		rep = Report{Total: len(all)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, res := range all {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ms, err := rm.Rematch(gctx, res)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				opts.Metrics.IncRematch("failed")
				log.Warn("rematch failed", zap.String("result_id", res.ID), zap.Error(err))
				rep.Failures = append(rep.Failures, Failure{ResultID: res.ID, Err: err})
				if opts.StopOnError {
					return fmt.Errorf("rematch %s: %w", res.ID, err)
				}
				return nil
			}
			opts.Metrics.IncRematch("ok")
			rep.Rematched++
			rep.Matches += len(ms)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}
	log.Info("rematch finished",
		zap.Int("total", rep.Total),
		zap.Int("rematched", rep.Rematched),
		zap.Int("failed", len(rep.Failures)),
	)
	return rep, nil
}
