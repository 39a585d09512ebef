package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/smukkama/aqi-forecast/internal/cache"
	"github.com/smukkama/aqi-forecast/internal/forecast"
)

// Runner produces a forecast, normally a *forecast.Pipeline
type Runner interface {
	Run(ctx context.Context) (*forecast.Result, error)
}

// Evaluator reacts to a fresh forecast, normally an *alerting.Evaluator
type Evaluator interface {
	Evaluate(ctx context.Context, result *forecast.Result) error
}

// Refresher runs the pipeline on a schedule and serves the latest result
type Refresher struct {
	runner    Runner
	store     cache.Store
	evaluator Evaluator
	logger    logrus.FieldLogger
	timeout   time.Duration

	runMu sync.Mutex
	cron  *cron.Cron
}

// New creates a refresher. evaluator may be nil.
func New(runner Runner, store cache.Store, evaluator Evaluator, logger logrus.FieldLogger) *Refresher {
	return &Refresher{
		runner:    runner,
		store:     store,
		evaluator: evaluator,
		logger:    logger,
		timeout:   5 * time.Minute,
	}
}

// RunOnce runs the pipeline, caches the result and evaluates alerts. Cache
// and alert failures are logged; only pipeline errors are returned.
func (r *Refresher) RunOnce(ctx context.Context) (*forecast.Result, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.run(ctx)
}

func (r *Refresher) run(ctx context.Context) (*forecast.Result, error) {
	result, err := r.runner.Run(ctx)
	if err != nil {
		r.logger.WithError(err).WithField("kind", forecast.Classify(err)).Error("Forecast run failed")
		return nil, err
	}

	if err := r.store.Set(ctx, result); err != nil {
		r.logger.WithError(err).Warn("Failed to cache forecast")
	}

	if r.evaluator != nil {
		if err := r.evaluator.Evaluate(ctx, result); err != nil {
			r.logger.WithError(err).Warn("Failed to evaluate forecast alerts")
		}
	}
	return result, nil
}

// Current returns the cached forecast, running the pipeline on a miss.
// Concurrent misses share one run.
func (r *Refresher) Current(ctx context.Context) (*forecast.Result, error) {
	result, err := r.store.Get(ctx)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		r.logger.WithError(err).Warn("Cache read failed, running pipeline")
	}

	r.runMu.Lock()
	defer r.runMu.Unlock()

	// another caller may have filled the cache while we waited
	if result, err := r.store.Get(ctx); err == nil {
		return result, nil
	}
	return r.run(ctx)
}

// Start schedules periodic runs. Overlapping runs are skipped.
func (r *Refresher) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		r.logger.WithField("schedule", schedule).Debug("Scheduled forecast refresh")
		r.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	r.cron = c
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}
