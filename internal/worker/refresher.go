package worker

import (
	"context"
	"fmt"
	"time"

	"bookkeeper/internal/log"
	"bookkeeper/internal/services"
)

// TotalsSource computes the current budget totals.
type TotalsSource interface {
	Totals(ctx context.Context) (services.Totals, error)
}

// Refresher polls a TotalsSource on a fixed interval and hands every
// result to a callback. Periods over their limit are logged at WARN.
type Refresher struct {
	source   TotalsSource
	interval time.Duration
	onTotals func(services.Totals)
	logger   *log.Logger

	metrics     *Metrics
	metricsFile string
}

// RefresherOption configures optional Refresher behavior.
type RefresherOption func(*Refresher)

// WithMetrics records every refresh in m. A non-empty textfile is rewritten
// after each refresh.
func WithMetrics(m *Metrics, textfile string) RefresherOption {
	return func(r *Refresher) {
		r.metrics = m
		r.metricsFile = textfile
	}
}

func NewRefresher(source TotalsSource, interval time.Duration, onTotals func(services.Totals), logger *log.Logger, opts ...RefresherOption) *Refresher {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if onTotals == nil {
		onTotals = func(services.Totals) {}
	}
	r := &Refresher{
		source:   source,
		interval: interval,
		onTotals: onTotals,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh computes the totals once.
func (r *Refresher) Refresh(ctx context.Context) (services.Totals, error) {
	totals, err := r.source.Totals(ctx)
	if err != nil {
		if r.metrics != nil {
			r.metrics.Failed()
			r.writeMetrics(ctx)
		}
		return services.Totals{}, fmt.Errorf("refresh totals: %w", err)
	}

	for _, p := range totals.Periods() {
		if !p.Exceeded() {
			continue
		}
		fields := log.NewFields().
			WithOperation(log.OpRefresh).
			WithPeriod(services.PeriodName(p.Length), p.Start.Format(time.DateOnly), p.Paid, p.Limit, p.Usage().String())
		r.logger.WarnContext(ctx, "Budget limit exceeded", fields.ToSlice()...)
	}

	if r.metrics != nil {
		r.metrics.Observe(totals)
		r.writeMetrics(ctx)
	}

	r.onTotals(totals)
	return totals, nil
}

func (r *Refresher) writeMetrics(ctx context.Context) {
	if r.metricsFile == "" {
		return
	}
	if err := r.metrics.WriteTextfile(r.metricsFile); err != nil {
		r.logger.ErrorContext(ctx, "Failed to write metrics textfile", "path", r.metricsFile, log.FieldError, err)
	}
}

// Run refreshes immediately and then on every tick until ctx is done.
// Failed refreshes are logged and retried on the next tick.
func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("refresh interval %v must be positive", r.interval)
	}
	r.logger.InfoContext(ctx, "Starting budget refresher", log.FieldInterval, r.interval.String())

	if _, err := r.Refresh(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Initial refresh failed", log.FieldError, err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Budget refresher stopped")
			return nil
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil {
				r.logger.ErrorContext(ctx, "Periodic refresh failed", log.FieldError, err)
			}
		}
	}
}
