package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mykhaliev/agent-scenarios/logger"
	"github.com/mykhaliev/agent-scenarios/model"
	"golang.org/x/sync/errgroup"
)

// RunAll executes scenarios with up to parallel concurrent runs. Individual
// scenario failures end up in the summary; the returned error is reserved
// for setup problems and context cancellation. Reports come back in the
// same order as the input scenarios.
func (r *Runner) RunAll(ctx context.Context, scenarios []*model.Scenario, parallel int) ([]*model.ScenarioReport, *model.BatchSummary, error) {
	if parallel <= 0 {
		parallel = 1
	}

	start := time.Now()
	runID := uuid.NewString()
	reports := make([]*model.ScenarioReport, len(scenarios))

	logger.Logger.Info("Starting scenario batch",
		"scenarios", len(scenarios),
		"parallel", parallel,
		"run_id", runID)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, scenario := range scenarios {
		if i > 0 && r.ScenarioDelay > 0 {
			select {
			case <-gctx.Done():
			case <-time.After(r.ScenarioDelay):
			}
		}
		g.Go(func() error {
			report, err := r.RunScenario(gctx, scenario)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	summary := model.BuildBatchSummary(runID, start, time.Now(), reports)

	logger.Logger.Info("Scenario batch finished",
		"total", summary.TotalScenarios,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"duration_ms", summary.ExecutionTimeMs)

	return reports, summary, nil
}
