// backend-go/internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

const defaultBatchSize = 100

// Scheduler errors.
var (
	ErrQueueFull   = errors.New("forecast queue is full")
	ErrRunNotFound = errors.New("forecast run not found")
	ErrRunTerminal = errors.New("forecast run already finished")
)

// RunStore persists forecast runs and their details.
type RunStore interface {
	CreateRun(ctx context.Context, run *domain.ForecastRun) error
	GetRun(ctx context.Context, id int64) (*domain.ForecastRun, error)
	UpdateRun(ctx context.Context, run *domain.ForecastRun) error
	// AddProgress atomically increments the processed/failed counters so a
	// concurrent status query observes monotonically increasing counts.
	AddProgress(ctx context.Context, runID int64, processed, failed int) error
	SaveDetails(ctx context.Context, details []domain.ForecastDetail) error
}

// CatalogStore resolves which pairs a run covers and the shared horizon.
type CatalogStore interface {
	LatestCatalogSalesMonth(ctx context.Context) (time.Time, error)
	ForecastPairs(ctx context.Context, filter domain.ForecastFilter) ([]Pair, error)
}

// Pair is one unit of forecast work.
type Pair struct {
	Item       domain.Item
	LocationID string
}

// ItemForecaster computes one pair's forecast detail.
type ItemForecaster interface {
	Forecast(ctx context.Context, item domain.Item, locationID string, anchor time.Time, growthOverride *float64) (*domain.ForecastDetail, error)
}

type job struct {
	runID     int64
	filter    domain.ForecastFilter
	override  *float64
	cancelled atomic.Bool
}

// Scheduler owns the bounded FIFO queue and the single background worker.
// Only one generation job is active at a time; on completion, failure or
// cancellation the worker advances to the next queued job. Constructed once
// at startup and torn down with Stop.
type Scheduler struct {
	runs       RunStore
	catalog    CatalogStore
	forecaster ItemForecaster

	batchSize int
	capacity  int

	mu       sync.Mutex
	queue    []*job
	reserved int
	active   *job

	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}
}

// New builds a scheduler with the given queue capacity; batchSize <= 0 falls
// back to the default of 100 items per progress flush.
func New(runs RunStore, catalog CatalogStore, forecaster ItemForecaster, capacity, batchSize int) *Scheduler {
	if capacity < 1 {
		capacity = 16
	}
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}

	return &Scheduler{
		runs:       runs,
		catalog:    catalog,
		forecaster: forecaster,
		batchSize:  batchSize,
		capacity:   capacity,
		notify:     make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (s *Scheduler) Start() {
	go s.loop()
}

// Stop requests the worker to finish the in-flight item and waits for it.
// An interrupted run is flushed and marked cancelled, never left running.
func (s *Scheduler) Stop(ctx context.Context) error {
	close(s.stop)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue records a run and appends it to the FIFO queue. The returned
// position is 0 when the worker will pick the run up next (or immediately);
// started reports whether nothing is ahead of it.
func (s *Scheduler) Enqueue(ctx context.Context, filter domain.ForecastFilter, growthOverride *float64) (runID int64, position int, started bool, err error) {
	// Reserve a slot before the run insert so concurrent enqueues can never
	// push the queue past capacity.
	s.mu.Lock()
	if len(s.queue)+s.reserved >= s.capacity {
		s.mu.Unlock()
		return 0, 0, false, ErrQueueFull
	}
	s.reserved++
	ahead := len(s.queue) + s.reserved - 1
	if s.active != nil {
		ahead++
	}
	s.mu.Unlock()

	status := domain.RunStatusPending
	if ahead > 0 {
		status = domain.RunStatusQueued
	}
	run := &domain.ForecastRun{
		Status:         status,
		Filter:         filter,
		GrowthOverride: growthOverride,
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		s.mu.Lock()
		s.reserved--
		s.mu.Unlock()
		return 0, 0, false, err
	}

	j := &job{runID: run.ID, filter: filter, override: growthOverride}

	s.mu.Lock()
	s.reserved--
	s.queue = append(s.queue, j)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}

	return run.ID, ahead, ahead == 0, nil
}

// Position returns the number of jobs ahead of a queued run, -1 when the run
// is not waiting in the queue.
func (s *Scheduler) Position(runID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := 0
	if s.active != nil {
		offset = 1
	}
	for i, j := range s.queue {
		if j.runID == runID {
			return i + offset
		}
	}

	return -1
}

// Cancel flags a running job for cooperative cancellation or removes a queued
// one. Terminal runs cannot be cancelled.
func (s *Scheduler) Cancel(ctx context.Context, runID int64) error {
	s.mu.Lock()
	if s.active != nil && s.active.runID == runID {
		s.active.cancelled.Store(true)
		s.mu.Unlock()
		return nil
	}
	for i, j := range s.queue {
		if j.runID == runID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			s.mu.Unlock()
			return s.markCancelled(ctx, runID)
		}
	}
	s.mu.Unlock()

	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return ErrRunNotFound
	}
	if run.Terminal() {
		return ErrRunTerminal
	}

	return s.markCancelled(ctx, runID)
}

func (s *Scheduler) markCancelled(ctx context.Context, runID int64) error {
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return ErrRunNotFound
	}
	run.Status = domain.RunStatusCancelled
	now := time.Now()
	run.CompletedAt = &now

	return s.runs.UpdateRun(ctx, run)
}

func (s *Scheduler) stopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *Scheduler) loop() {
	defer close(s.done)
	ctx := context.Background()

	for {
		select {
		case <-s.stop:
			return
		case <-s.notify:
		}

		for {
			select {
			case <-s.stop:
				return
			default:
			}

			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			j := s.queue[0]
			s.queue = s.queue[1:]
			s.active = j
			s.mu.Unlock()

			s.runJob(ctx, j)

			s.mu.Lock()
			s.active = nil
			s.mu.Unlock()
		}
	}
}

// runJob processes one run in fixed-size batches, persisting progress after
// every batch. A fatal failure marks the run failed and still lets the loop
// advance; a stuck queue is a correctness bug.
func (s *Scheduler) runJob(ctx context.Context, j *job) {
	run, err := s.runs.GetRun(ctx, j.runID)
	if err != nil || run == nil {
		log.Error().Err(err).Int64("run_id", j.runID).Msg("scheduler: run lookup failed")
		return
	}

	now := time.Now()
	run.Status = domain.RunStatusRunning
	run.StartedAt = &now
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		log.Error().Err(err).Int64("run_id", j.runID).Msg("scheduler: run update failed")
		return
	}

	anchor, err := s.catalog.LatestCatalogSalesMonth(ctx)
	if err != nil {
		s.failRun(ctx, run, err)
		return
	}
	pairs, err := s.catalog.ForecastPairs(ctx, j.filter)
	if err != nil {
		s.failRun(ctx, run, err)
		return
	}

	run.TotalItems = len(pairs)
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("scheduler: total items update failed")
	}

	log.Info().
		Int64("run_id", run.ID).
		Int("pairs", len(pairs)).
		Time("anchor", anchor).
		Msg("scheduler: forecast run started")

	batch := make([]domain.ForecastDetail, 0, s.batchSize)
	processed, failed := 0, 0
	cancelled := false

	flush := func() {
		if len(batch) > 0 {
			if err := s.runs.SaveDetails(ctx, batch); err != nil {
				log.Error().Err(err).Int64("run_id", run.ID).Msg("scheduler: saving details failed")
				failed += len(batch)
				processed -= len(batch)
			}
			batch = batch[:0]
		}
		if processed > 0 || failed > 0 {
			if err := s.runs.AddProgress(ctx, run.ID, processed, failed); err != nil {
				log.Warn().Err(err).Int64("run_id", run.ID).Msg("scheduler: progress update failed")
			}
			processed, failed = 0, 0
		}
	}

	for _, pair := range pairs {
		if j.cancelled.Load() || s.stopping() {
			cancelled = true
			break
		}

		detail, err := s.forecaster.Forecast(ctx, pair.Item, pair.LocationID, anchor, j.override)
		if err != nil {
			// Per-item failures never abort the batch for other items.
			log.Warn().Err(err).
				Int64("run_id", run.ID).
				Str("item_id", pair.Item.ID).
				Str("location_id", pair.LocationID).
				Msg("scheduler: item forecast failed")
			failed++
		} else {
			detail.RunID = run.ID
			batch = append(batch, *detail)
			processed++
		}

		if processed+failed >= s.batchSize {
			flush()
		}
	}
	flush()

	end := time.Now()
	run, err = s.runs.GetRun(ctx, run.ID)
	if err != nil || run == nil {
		log.Error().Err(err).Int64("run_id", j.runID).Msg("scheduler: run reload failed")
		return
	}
	if cancelled {
		run.Status = domain.RunStatusCancelled
	} else {
		run.Status = domain.RunStatusCompleted
	}
	run.CompletedAt = &end
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		log.Error().Err(err).Int64("run_id", run.ID).Msg("scheduler: final run update failed")
	}

	log.Info().
		Int64("run_id", run.ID).
		Str("status", run.Status).
		Int("processed", run.ProcessedItems).
		Int("failed", run.FailedItems).
		Msg("scheduler: forecast run finished")
}

func (s *Scheduler) failRun(ctx context.Context, run *domain.ForecastRun, cause error) {
	log.Error().Err(cause).Int64("run_id", run.ID).Msg("scheduler: forecast run failed")
	run.Status = domain.RunStatusFailed
	run.ErrorMessage = cause.Error()
	now := time.Now()
	run.CompletedAt = &now
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		log.Error().Err(err).Int64("run_id", run.ID).Msg("scheduler: marking run failed failed")
	}
}
