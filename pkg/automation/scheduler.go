package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

const (
	retryJobsKey = "pipewise:retry_jobs"
	pollInterval = 5 * time.Second
)

// retryJob is the serialized member stored in the retry sorted set; the
// score is the unix time the retry becomes due.
type retryJob struct {
	JobID   string `json:"job_id"`
	OrgID   string `json:"org_id"`
	RunID   string `json:"run_id"`
	ActorID string `json:"actor_id"`
}

// Scheduler owns deferred work: delayed run retries (a Redis sorted set
// scored by due time) and cron-driven scheduled workflows. One poll loop
// services both.
type Scheduler struct {
	logger      *slog.Logger
	client      redis.UniversalClient
	engine      *Engine
	persistence persistence.Persistence

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewScheduler(logger *slog.Logger, client redis.UniversalClient, engine *Engine, persist persistence.Persistence) *Scheduler {
	return &Scheduler{
		logger:      logger.With("module", "scheduler"),
		client:      client,
		engine:      engine,
		persistence: persist,
		stopCh:      make(chan struct{}),
	}
}

// ScheduleRetry enqueues a delayed retry for a failed run and returns the
// job ID. The run's status is checked now so an invalid request fails fast
// instead of at fire time.
func (s *Scheduler) ScheduleRetry(ctx context.Context, orgID, runID, actorID string, delay time.Duration) (string, error) {
	run, err := s.persistence.RunRepository().GetByID(ctx, orgID, runID)
	if err != nil {
		return "", err
	}

	if run.Status != models.RunStatusFailed {
		return "", ErrRetryNotFailed
	}

	job := retryJob{
		JobID:   uuid.New().String(),
		OrgID:   orgID,
		RunID:   runID,
		ActorID: actorID,
	}

	member, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal retry job: %w", err)
	}

	dueAt := time.Now().Add(delay)

	err = s.client.ZAdd(ctx, retryJobsKey, redis.Z{
		Score:  float64(dueAt.Unix()),
		Member: string(member),
	}).Err()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue retry job: %w", err)
	}

	s.logger.InfoContext(ctx, "Retry scheduled",
		"job_id", job.JobID, "run_id", runID, "due_at", dueAt.UTC())

	return job.JobID, nil
}

// Start launches the poll loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)

	go s.poll(ctx)
}

// Stop halts the poll loop and waits for in-flight work.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) poll(ctx context.Context) {
	defer s.wg.Done()

	s.logger.InfoContext(ctx, "Scheduler started", "interval", pollInterval)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			s.logger.InfoContext(ctx, "Scheduler stopped")

			return
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Context cancelled, stopping scheduler")

			return
		case <-ticker.C:
			s.fireDueRetries(ctx)
			s.fireDueSchedules(ctx)
		}
	}
}

func (s *Scheduler) fireDueRetries(ctx context.Context) {
	now := time.Now()

	members, err := s.client.ZRangeByScore(ctx, retryJobsKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query due retry jobs", "error", err)

		return
	}

	for _, member := range members {
		// Claim by removal; a competing poller that loses the ZRem skips
		// the job.
		removed, err := s.client.ZRem(ctx, retryJobsKey, member).Result()
		if err != nil || removed == 0 {
			continue
		}

		var job retryJob

		err = json.Unmarshal([]byte(member), &job)
		if err != nil {
			s.logger.ErrorContext(ctx, "Dropping malformed retry job", "member", member, "error", err)

			continue
		}

		run, err := s.engine.Retry(ctx, job.OrgID, job.RunID, job.ActorID)
		if err != nil {
			s.logger.ErrorContext(ctx, "Scheduled retry failed",
				"job_id", job.JobID, "run_id", job.RunID, "error", err)

			continue
		}

		s.logger.InfoContext(ctx, "Scheduled retry executed",
			"job_id", job.JobID, "original_run_id", job.RunID, "new_run_id", run.ID, "status", run.Status)
	}
}

func (s *Scheduler) fireDueSchedules(ctx context.Context) {
	now := time.Now().UTC()

	due, err := s.persistence.ScheduleRepository().ListDue(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query due schedules", "error", err)

		return
	}

	for _, schedule := range due {
		// Advance first so a failing workflow does not re-fire every tick.
		err = schedule.UpdateNextDueAt()
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to advance schedule", "schedule_id", schedule.ID, "error", err)

			continue
		}

		err = s.persistence.ScheduleRepository().Save(ctx, schedule)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to save schedule", "schedule_id", schedule.ID, "error", err)

			continue
		}

		s.fireScheduledWorkflow(ctx, schedule)
	}
}

func (s *Scheduler) fireScheduledWorkflow(ctx context.Context, schedule *models.Schedule) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, schedule.OrgID, schedule.WorkflowID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Scheduled workflow missing",
			"schedule_id", schedule.ID, "workflow_id", schedule.WorkflowID, "error", err)

		return
	}

	// A schedule may pin a target record through the workflow's trigger
	// config; without one the actions run record-less.
	var record *models.Record

	if recordID, ok := workflow.TriggerConfig["record_id"].(string); ok && recordID != "" {
		record, err = s.persistence.RecordRepository().GetByID(ctx, schedule.OrgID, recordID)
		if err != nil {
			s.logger.ErrorContext(ctx, "Scheduled workflow target record missing",
				"workflow_id", workflow.ID, "record_id", recordID, "error", err)

			return
		}
	}

	run, err := s.engine.ExecuteWorkflow(ctx, ExecuteInput{
		OrgID:    schedule.OrgID,
		Workflow: workflow,
		Record:   record,
		Trigger:  models.TriggerScheduled,
		ActorID:  "scheduler",
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Scheduled workflow execution failed",
			"workflow_id", workflow.ID, "error", err)

		return
	}

	s.logger.InfoContext(ctx, "Scheduled workflow executed",
		"workflow_id", workflow.ID, "run_id", run.ID, "status", run.Status)
}
