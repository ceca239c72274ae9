// Package persistence provides the data storage abstraction for the engine.
package persistence

import (
	"context"
	"time"

	"github.com/pipewise/pipewise/pkg/models"
)

// Persistence is the storage entry point. Implementations expose one
// repository per aggregate; all reads and writes are org-scoped.
type Persistence interface {
	BlueprintRepository() BlueprintRepository
	RecordRepository() RecordRepository
	RuleRepository() RuleRepository
	ApprovalRepository() ApprovalRepository
	WorkflowRepository() WorkflowRepository
	MacroRepository() MacroRepository
	RunRepository() RunRepository
	ScheduleRepository() ScheduleRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// BlueprintRepository stores per-module stage graphs.
type BlueprintRepository interface {
	// GetByModule returns (nil, nil) when the module has no blueprint;
	// transitions are then unconstrained.
	GetByModule(ctx context.Context, orgID, moduleID string) (*models.Blueprint, error)
	Save(ctx context.Context, blueprint *models.Blueprint) error
}

// StageCommit describes the atomic stage-change write: stage mutation,
// history row, and audit row applied in one transaction, guarded by an
// optimistic check on the expected current stage.
type StageCommit struct {
	OrgID     string
	RecordID  string
	FromStage string
	ToStage   string
	Reason    string
	ActorID   string

	// Fields are payload updates applied together with the stage write.
	Fields map[string]models.FieldValue

	At time.Time
}

// RecordRepository owns the engine's view of records: stage, data and the
// append-only history trail.
type RecordRepository interface {
	GetByID(ctx context.Context, orgID, id string) (*models.Record, error)
	Save(ctx context.Context, record *models.Record) error

	// CommitStageChange applies the commit triple atomically. It returns
	// ErrStageConflict when the record's stage no longer equals
	// commit.FromStage.
	CommitStageChange(ctx context.Context, commit StageCommit) (*models.Record, error)

	// ApplyFields merges field updates into the record data.
	ApplyFields(ctx context.Context, orgID, recordID string, fields map[string]models.FieldValue) (*models.Record, error)

	History(ctx context.Context, orgID, recordID string) ([]*models.StageHistoryEntry, error)
}

// RuleRepository stores validation rules and approval processes.
type RuleRepository interface {
	ListByModule(ctx context.Context, orgID, moduleID string) ([]*models.ValidationRule, error)
	Save(ctx context.Context, rule *models.ValidationRule) error

	ListApprovalProcesses(ctx context.Context, orgID, moduleID string) ([]*models.ApprovalProcess, error)
	SaveApprovalProcess(ctx context.Context, process *models.ApprovalProcess) error
}

// ApprovalRepository stores deferred mutations awaiting sign-off.
type ApprovalRepository interface {
	GetByID(ctx context.Context, orgID, id string) (*models.ApprovalRequest, error)
	Save(ctx context.Context, request *models.ApprovalRequest) error

	// Resolve conditionally moves a pending request to a terminal status.
	// It returns ErrApprovalConflict when the request is no longer
	// pending; the first resolver wins.
	Resolve(ctx context.Context, orgID, id string, decision models.ApprovalStatus, resolverID string, at time.Time) (*models.ApprovalRequest, error)

	ListPending(ctx context.Context, orgID string) ([]*models.ApprovalRequest, error)
}

// WorkflowRepository stores workflow configuration.
type WorkflowRepository interface {
	GetByID(ctx context.Context, orgID, id string) (*models.Workflow, error)
	List(ctx context.Context, orgID string) ([]*models.Workflow, error)

	// ListEnabled returns enabled workflows for the module and trigger,
	// ordered by ascending priority.
	ListEnabled(ctx context.Context, orgID, moduleID string, trigger models.TriggerType) ([]*models.Workflow, error)

	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, orgID, id string) error
}

// MacroRepository stores macro configuration.
type MacroRepository interface {
	GetByID(ctx context.Context, orgID, id string) (*models.Macro, error)
	List(ctx context.Context, orgID string) ([]*models.Macro, error)
	Save(ctx context.Context, macro *models.Macro) error
	Delete(ctx context.Context, orgID, id string) error
}

// RunRepository stores automation run attempts. Runs are append-mostly and
// never mutated once terminal.
type RunRepository interface {
	GetByID(ctx context.Context, orgID, id string) (*models.AutomationRun, error)
	List(ctx context.Context, orgID string, limit int) ([]*models.AutomationRun, error)
	Save(ctx context.Context, run *models.AutomationRun) error
}

// ScheduleRepository stores cron schedules for scheduled workflows.
type ScheduleRepository interface {
	ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error)
	Save(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, orgID, id string) error
}
