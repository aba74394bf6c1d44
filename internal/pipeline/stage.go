package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"time"
)

// Stage is one step of a flow. Run does the work; Rollback, when set, undoes
// it if a later stage fails. Stages are values, not types: a flow is just a
// slice walked in order.
type Stage struct {
	Name     string
	Cost     time.Duration
	Run      func(ctx context.Context) error
	Rollback func(ctx context.Context)
}

type Runner struct {
	budget *Budget
	log    *logrus.Logger
}

func NewRunner(budget *Budget, log *logrus.Logger) *Runner {
	return &Runner{budget: budget, log: log}
}

// Execute walks the stages sequentially. Each stage passes the admission gate
// before it may touch external collaborators; on failure, the rollbacks of
// every completed stage run in reverse order before the error surfaces.
func (r *Runner) Execute(ctx context.Context, requestID string, stages []Stage) error {
	var cleanups []func(context.Context)

	rollback := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i](ctx)
		}
	}

	for _, stage := range stages {
		if !r.budget.Admit(stage.Cost, SafetyMargin) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"stage":      stage.Name,
				"remaining":  r.budget.Remaining().String(),
				"need":       stage.Cost.String(),
			}).Warn("Stage refused by admission gate")

			rollback()
			return Fail(KindTimeoutExceeded, stage.Name,
				fmt.Errorf("insufficient budget: need %s+%s, remaining %s",
					stage.Cost, SafetyMargin, r.budget.Remaining()))
		}

		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"stage":      stage.Name,
			"elapsed_ms": r.budget.Elapsed().Milliseconds(),
		}).Debug("Stage admitted")

		if err := stage.Run(ctx); err != nil {
			rollback()
			return err
		}

		if stage.Rollback != nil {
			cleanups = append(cleanups, stage.Rollback)
		}
	}

	return nil
}
