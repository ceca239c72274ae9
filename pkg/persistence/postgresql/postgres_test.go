package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{
		"schedules", "automation_runs", "macros", "workflows",
		"approval_requests", "approval_processes", "validation_rules",
		"blueprints", "audit_log", "stage_history", "records",
		"schema_migrations",
	} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("pipewise_test"),
			postgres.WithUsername("pipewise"),
			postgres.WithPassword("pipewise"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx
}

func seedRecord(ctx context.Context, t *testing.T, p *postgresql.Persistence) *models.Record {
	t.Helper()

	record := &models.Record{
		ID:       uuid.New().String(),
		OrgID:    "org-1",
		ModuleID: "deals",
		Stage:    "proposal",
		Data: map[string]models.FieldValue{
			"amount": models.NumberValue(12500),
		},
	}
	require.NoError(t, p.RecordRepository().Save(ctx, record))

	return record
}

func TestNewPersistence_Migrations(t *testing.T) {
	p, ctx := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))
}

func TestRecordRepository_CommitStageChange(t *testing.T) {
	p, ctx := setupTestDB(t)
	record := seedRecord(ctx, t, p)

	updated, err := p.RecordRepository().CommitStageChange(ctx, persistence.StageCommit{
		OrgID:     "org-1",
		RecordID:  record.ID,
		FromStage: "proposal",
		ToStage:   "negotiation",
		ActorID:   "user-1",
		Fields: map[string]models.FieldValue{
			"close_date": models.StringValue("2026-09-30"),
		},
		At: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.Equal(t, "negotiation", updated.Stage)
	assert.Equal(t, "2026-09-30", updated.Data["close_date"].Str)

	history, err := p.RecordRepository().History(ctx, "org-1", record.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "proposal", history[0].FromStage)
	assert.Equal(t, "negotiation", history[0].ToStage)
	assert.Equal(t, "user-1", history[0].ActorID)
}

func TestRecordRepository_CommitStageChange_StaleStage(t *testing.T) {
	p, ctx := setupTestDB(t)
	record := seedRecord(ctx, t, p)

	_, err := p.RecordRepository().CommitStageChange(ctx, persistence.StageCommit{
		OrgID:     "org-1",
		RecordID:  record.ID,
		FromStage: "qualification",
		ToStage:   "negotiation",
		ActorID:   "user-1",
		At:        time.Now().UTC(),
	})
	assert.True(t, persistence.IsStageConflict(err))

	stored, err := p.RecordRepository().GetByID(ctx, "org-1", record.ID)
	require.NoError(t, err)
	assert.Equal(t, "proposal", stored.Stage)

	history, err := p.RecordRepository().History(ctx, "org-1", record.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecordRepository_OrgScoping(t *testing.T) {
	p, ctx := setupTestDB(t)
	record := seedRecord(ctx, t, p)

	_, err := p.RecordRepository().GetByID(ctx, "org-2", record.ID)
	assert.True(t, persistence.IsNotFound(err))
}

func TestApprovalRepository_ResolveOnce(t *testing.T) {
	p, ctx := setupTestDB(t)
	record := seedRecord(ctx, t, p)

	request := &models.ApprovalRequest{
		ID:       uuid.New().String(),
		OrgID:    "org-1",
		ModuleID: "deals",
		RecordID: record.ID,
		Trigger:  models.RuleTriggerStageTransition,
		Payload: models.ActionPayload{
			Version:   models.ActionPayloadVersion,
			Kind:      models.ActionKindStageChange,
			StageFrom: "proposal",
			StageTo:   "negotiation",
		},
		Status:      models.ApprovalStatusPending,
		RequestedBy: "user-1",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, p.ApprovalRepository().Save(ctx, request))

	resolved, err := p.ApprovalRepository().Resolve(ctx, "org-1", request.ID,
		models.ApprovalStatusApproved, "manager-1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, resolved.Status)
	assert.Equal(t, "manager-1", resolved.ResolvedBy)

	_, err = p.ApprovalRepository().Resolve(ctx, "org-1", request.ID,
		models.ApprovalStatusRejected, "manager-2", time.Now().UTC())
	assert.True(t, persistence.IsApprovalConflict(err))
}

func TestWorkflowRepository_ListEnabled(t *testing.T) {
	p, ctx := setupTestDB(t)

	save := func(id string, priority int, enabled bool) {
		t.Helper()
		require.NoError(t, p.WorkflowRepository().Save(ctx, &models.Workflow{
			ID: id, OrgID: "org-1", ModuleID: "deals", Name: "wf " + id,
			Trigger: models.TriggerOnStageChange, Enabled: enabled, Priority: priority,
			Actions: []models.WorkflowAction{
				{ID: "a1", Type: models.ActionAddNote,
					Config: map[string]any{"body": "x"}, Order: 1},
			},
		}))
	}

	save("wf-b", 10, true)
	save("wf-a", 1, true)
	save("wf-off", 0, false)

	enabled, err := p.WorkflowRepository().ListEnabled(ctx, "org-1", "deals", models.TriggerOnStageChange)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	assert.Equal(t, "wf-a", enabled[0].ID)
	assert.Equal(t, "wf-b", enabled[1].ID)

	require.NoError(t, p.WorkflowRepository().Delete(ctx, "org-1", "wf-a"))

	enabled, err = p.WorkflowRepository().ListEnabled(ctx, "org-1", "deals", models.TriggerOnStageChange)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "wf-b", enabled[0].ID)
}

func TestScheduleRepository_ListDue(t *testing.T) {
	p, ctx := setupTestDB(t)

	schedule, err := models.NewSchedule("schedule-wf-1", "org-1", "wf-1", "*/5 * * * *")
	require.NoError(t, err)
	require.NoError(t, p.ScheduleRepository().Save(ctx, schedule))

	due, err := p.ScheduleRepository().ListDue(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "wf-1", due[0].WorkflowID)

	due, err = p.ScheduleRepository().ListDue(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}
