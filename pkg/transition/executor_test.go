package transition

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipewise/pipewise/pkg/approval"
	"github.com/pipewise/pipewise/pkg/eventbus"
	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/persistence/file"
	"github.com/pipewise/pipewise/pkg/rules"
)

type nopPublisher struct{}

func (nopPublisher) Publish(_ context.Context, _ string, _ eventbus.Event) error {
	return nil
}

func newTestExecutor(t *testing.T) (*Executor, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	ruleEngine := rules.NewEngine(slog.Default())
	approvals := approval.NewService(slog.Default(), store, ruleEngine)
	executor := NewExecutor(slog.Default(), store, ruleEngine, approvals, nopPublisher{})
	approvals.SetCommitter(executor)

	blueprint := &models.Blueprint{
		OrgID:    "org-1",
		ModuleID: "deals",
		Stages:   []string{"qualification", "proposal", "negotiation", "won", "lost"},
		Transitions: []models.Transition{
			{From: "qualification", To: "proposal"},
			{From: "proposal", To: "negotiation", RequiredFields: []string{"close_date"}},
			{From: "negotiation", To: "won", RequiresApproval: true},
			{From: "negotiation", To: "lost", RequireReason: true},
		},
	}
	require.NoError(t, store.BlueprintRepository().Save(t.Context(), blueprint))

	record := &models.Record{
		ID:       "rec-1",
		OrgID:    "org-1",
		ModuleID: "deals",
		Stage:    "proposal",
		Data: map[string]models.FieldValue{
			"amount": models.NumberValue(5000),
		},
	}
	require.NoError(t, store.RecordRepository().Save(t.Context(), record))

	return executor, store
}

func requireStage(t *testing.T, store *file.Persistence, want string) {
	t.Helper()

	record, err := store.RecordRepository().GetByID(t.Context(), "org-1", "rec-1")
	require.NoError(t, err)
	assert.Equal(t, want, record.Stage)
}

func TestExecutor_Execute_UndeclaredEdgeBlocked(t *testing.T) {
	executor, store := newTestExecutor(t)

	result, err := executor.Execute(t.Context(), Request{
		OrgID:    "org-1",
		RecordID: "rec-1",
		ToStage:  "won",
		Actor:    Actor{ID: "user-1", Role: models.RoleAdmin},
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeBlocked, result.Outcome)
	assert.False(t, result.Allowed)
	assert.NotEmpty(t, result.Error)

	requireStage(t, store, "proposal")

	history, err := store.RecordRepository().History(t.Context(), "org-1", "rec-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestExecutor_Execute_MissingFieldsBlocked(t *testing.T) {
	executor, store := newTestExecutor(t)

	result, err := executor.Execute(t.Context(), Request{
		OrgID:    "org-1",
		RecordID: "rec-1",
		ToStage:  "negotiation",
		Actor:    Actor{ID: "user-1", Role: models.RoleRep},
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeBlocked, result.Outcome)
	assert.True(t, result.Allowed)
	assert.False(t, result.Valid)
	require.Len(t, result.MissingFields, 1)
	assert.Equal(t, "close_date", result.MissingFields[0].Field)

	requireStage(t, store, "proposal")
}

func TestExecutor_Execute_RuleFailuresAccumulate(t *testing.T) {
	executor, store := newTestExecutor(t)

	for _, rule := range []*models.ValidationRule{
		{
			ID: "rule-amount", OrgID: "org-1", ModuleID: "deals",
			Trigger:      models.RuleTriggerStageTransition,
			Conditions:   []models.Condition{{Field: "amount", Operator: models.OpGreaterThan, Value: 10000}},
			RuleName:     "minimum amount",
			Field:        "amount",
			ErrorMessage: "amount too low",
			Enabled:      true,
		},
		{
			ID: "rule-contact", OrgID: "org-1", ModuleID: "deals",
			Trigger:      models.RuleTriggerStageTransition,
			Conditions:   []models.Condition{{Field: "contact", Operator: models.OpIsNotEmpty}},
			RuleName:     "contact attached",
			Field:        "contact",
			ErrorMessage: "a contact must be attached",
			Enabled:      true,
		},
	} {
		require.NoError(t, store.RuleRepository().Save(t.Context(), rule))
	}

	result, err := executor.Execute(t.Context(), Request{
		OrgID:    "org-1",
		RecordID: "rec-1",
		ToStage:  "negotiation",
		Fields:   map[string]models.FieldValue{"close_date": models.StringValue("2026-09-30")},
		Actor:    Actor{ID: "user-1", Role: models.RoleRep},
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeBlocked, result.Outcome)
	assert.Len(t, result.RuleErrors, 2)

	requireStage(t, store, "proposal")
}

func TestExecutor_Execute_ReasonRequired(t *testing.T) {
	executor, store := newTestExecutor(t)

	_, err := store.RecordRepository().CommitStageChange(t.Context(), mustCommit("proposal", "negotiation"))
	require.NoError(t, err)

	result, err := executor.Execute(t.Context(), Request{
		OrgID:    "org-1",
		RecordID: "rec-1",
		ToStage:  "lost",
		Actor:    Actor{ID: "user-1", Role: models.RoleRep},
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeBlocked, result.Outcome)
	assert.True(t, result.RequiresReason)

	requireStage(t, store, "negotiation")
}

func TestExecutor_Execute_Commit(t *testing.T) {
	executor, store := newTestExecutor(t)

	result, err := executor.Execute(t.Context(), Request{
		OrgID:    "org-1",
		RecordID: "rec-1",
		ToStage:  "negotiation",
		Fields:   map[string]models.FieldValue{"close_date": models.StringValue("2026-09-30")},
		Actor:    Actor{ID: "user-1", Role: models.RoleRep},
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeCommitted, result.Outcome)
	assert.True(t, result.Committed())
	require.NotNil(t, result.Record)
	assert.Equal(t, "negotiation", result.Record.Stage)
	assert.Equal(t, models.StringValue("2026-09-30"), result.Record.Data["close_date"])

	history, err := store.RecordRepository().History(t.Context(), "org-1", "rec-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "user-1", history[0].ActorID)
}

func TestExecutor_Execute_ApprovalDefersMutation(t *testing.T) {
	executor, store := newTestExecutor(t)

	_, err := store.RecordRepository().CommitStageChange(t.Context(), mustCommit("proposal", "negotiation"))
	require.NoError(t, err)

	result, err := executor.Execute(t.Context(), Request{
		OrgID:    "org-1",
		RecordID: "rec-1",
		ToStage:  "won",
		Actor:    Actor{ID: "user-1", Role: models.RoleManager},
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeAwaitingApproval, result.Outcome)
	assert.True(t, result.RequiresApproval)
	require.NotEmpty(t, result.ApprovalID)

	// The record stays pre-transition while the request is open.
	requireStage(t, store, "negotiation")

	pending, err := store.ApprovalRepository().ListPending(t.Context(), "org-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, result.ApprovalID, pending[0].ID)
	assert.Equal(t, models.ActionKindStageChange, pending[0].Payload.Kind)
	assert.Equal(t, "won", pending[0].Payload.StageTo)
	assert.Equal(t, models.ActionPayloadVersion, pending[0].Payload.Version)
}

func TestExecutor_Execute_BlockedKeepsApprovalFlag(t *testing.T) {
	executor, store := newTestExecutor(t)

	_, err := store.RecordRepository().CommitStageChange(t.Context(), mustCommit("proposal", "negotiation"))
	require.NoError(t, err)

	require.NoError(t, store.RuleRepository().Save(t.Context(), &models.ValidationRule{
		ID: "rule-amount", OrgID: "org-1", ModuleID: "deals",
		Trigger:      models.RuleTriggerStageTransition,
		Conditions:   []models.Condition{{Field: "amount", Operator: models.OpGreaterThan, Value: 10000}},
		RuleName:     "minimum amount",
		Field:        "amount",
		ErrorMessage: "amount too low",
		Enabled:      true,
	}))

	result, err := executor.Execute(t.Context(), Request{
		OrgID:    "org-1",
		RecordID: "rec-1",
		ToStage:  "won",
		Actor:    Actor{ID: "user-1", Role: models.RoleManager},
	})
	require.NoError(t, err)

	// A transition can be blocked and approval-gated at once; both facets
	// surface on the same result.
	assert.Equal(t, OutcomeBlocked, result.Outcome)
	assert.True(t, result.RequiresApproval)
	assert.Len(t, result.RuleErrors, 1)

	requireStage(t, store, "negotiation")
}

func TestExecutor_Check_DoesNotMutate(t *testing.T) {
	executor, store := newTestExecutor(t)

	result, err := executor.Check(t.Context(), Request{
		OrgID:    "org-1",
		RecordID: "rec-1",
		ToStage:  "negotiation",
		Fields:   map[string]models.FieldValue{"close_date": models.StringValue("2026-09-30")},
		Actor:    Actor{ID: "user-1", Role: models.RoleRep},
	})
	require.NoError(t, err)

	// Check reports what Execute would do without doing it.
	assert.Equal(t, OutcomeCommitted, result.Outcome)
	assert.True(t, result.Valid)

	requireStage(t, store, "proposal")

	history, err := store.RecordRepository().History(t.Context(), "org-1", "rec-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestExecutor_AvailableTransitions(t *testing.T) {
	executor, _ := newTestExecutor(t)

	transitions, err := executor.AvailableTransitions(t.Context(), "org-1", "rec-1", models.RoleRep)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, "negotiation", transitions[0].To)
}

func TestExecutor_MoveStage(t *testing.T) {
	executor, store := newTestExecutor(t)

	// An undeclared edge surfaces as an error to the calling action.
	err := executor.MoveStage(t.Context(), "org-1", "rec-1", "won", "", "automation")
	assert.Error(t, err)

	record, err := store.RecordRepository().GetByID(t.Context(), "org-1", "rec-1")
	require.NoError(t, err)
	record.Data["close_date"] = models.StringValue("2026-09-30")
	require.NoError(t, store.RecordRepository().Save(t.Context(), record))

	err = executor.MoveStage(t.Context(), "org-1", "rec-1", "negotiation", "", "automation")
	require.NoError(t, err)
	requireStage(t, store, "negotiation")
}

func mustCommit(from, to string) persistence.StageCommit {
	return persistence.StageCommit{
		OrgID:     "org-1",
		RecordID:  "rec-1",
		FromStage: from,
		ToStage:   to,
		ActorID:   "seed",
		At:        time.Now().UTC(),
	}
}
