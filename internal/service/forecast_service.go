// backend-go/internal/service/forecast_service.go
package service

import (
	"context"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository"
	"github.com/andresuchdata/demandcast/backend-go/internal/scheduler"
)

// RunStatus is the scheduler-aware view of a forecast run: the persisted row
// plus the live queue position when the run is still waiting.
type RunStatus struct {
	Run           *domain.ForecastRun `json:"run"`
	QueuePosition int                 `json:"queue_position"`
}

type ForecastService struct {
	repo  repository.ForecastRepository
	sched *scheduler.Scheduler
}

func NewForecastService(repo repository.ForecastRepository, sched *scheduler.Scheduler) *ForecastService {
	return &ForecastService{repo: repo, sched: sched}
}

// RequestRun queues a forecast generation run and reports whether it started
// immediately.
func (s *ForecastService) RequestRun(ctx context.Context, filter domain.ForecastFilter, growthOverride *float64) (runID int64, position int, started bool, err error) {
	return s.sched.Enqueue(ctx, filter, growthOverride)
}

func (s *ForecastService) GetRunStatus(ctx context.Context, runID int64) (*RunStatus, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, scheduler.ErrRunNotFound
	}

	return &RunStatus{Run: run, QueuePosition: s.sched.Position(runID)}, nil
}

func (s *ForecastService) ListRuns(ctx context.Context, limit int) ([]domain.ForecastRun, error) {
	return s.repo.ListRuns(ctx, limit)
}

func (s *ForecastService) CancelRun(ctx context.Context, runID int64) error {
	return s.sched.Cancel(ctx, runID)
}

// GetRunDetails returns per-item forecasts for a run, optionally narrowed to
// specific items. A zero runID resolves to the latest completed run.
func (s *ForecastService) GetRunDetails(ctx context.Context, runID int64, itemIDs []string) ([]domain.ForecastDetail, error) {
	if runID == 0 {
		latest, err := s.repo.LatestCompletedRunID(ctx)
		if err != nil {
			return nil, err
		}
		if latest == 0 {
			return nil, scheduler.ErrRunNotFound
		}
		runID = latest
	}

	return s.repo.GetDetails(ctx, runID, itemIDs)
}
