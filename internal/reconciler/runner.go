package reconciler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Runner schedules reconciliation batches on a cron expression.
type Runner struct {
	cron   *cron.Cron
	logger *otelzap.Logger
}

// NewRunner wires the reconciler onto a cron schedule (standard five-field
// syntax, e.g. "*/15 * * * *"). The job does not start until Start.
func NewRunner(schedule string, r *Reconciler, logger *otelzap.Logger) (*Runner, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := r.Run(context.Background()); err != nil {
			logger.Error("reconciliation run failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reconciler schedule %q: %w", schedule, err)
	}
	return &Runner{cron: c, logger: logger}, nil
}

// Start begins scheduling in its own goroutine.
func (r *Runner) Start() {
	r.logger.Info("reconciler scheduled")
	r.cron.Start()
}

// Stop stops scheduling and waits for any in-flight run to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("reconciler stopped")
}
