package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipewise/pipewise/pkg/actions/addnote"
	"github.com/pipewise/pipewise/pkg/approval"
	"github.com/pipewise/pipewise/pkg/automation"
	"github.com/pipewise/pipewise/pkg/collab"
	"github.com/pipewise/pipewise/pkg/eventbus"
	"github.com/pipewise/pipewise/pkg/macro"
	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence/file"
	"github.com/pipewise/pipewise/pkg/protocol"
	"github.com/pipewise/pipewise/pkg/registry"
	"github.com/pipewise/pipewise/pkg/rules"
	"github.com/pipewise/pipewise/pkg/services"
	"github.com/pipewise/pipewise/pkg/transition"
	"github.com/pipewise/pipewise/pkg/web"
)

type nopPublisher struct{}

func (nopPublisher) Publish(_ context.Context, _ string, _ eventbus.Event) error {
	return nil
}

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := slog.Default()

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(addnote.NewFactory())

	ruleEngine := rules.NewEngine(logger)
	approvals := approval.NewService(logger, store, ruleEngine)
	executor := transition.NewExecutor(logger, store, ruleEngine, approvals, nopPublisher{})
	approvals.SetCommitter(executor)

	memory := collab.NewMemory()
	collaborators := protocol.Collaborators{
		Records:     collab.NewStoreMutator(store.RecordRepository()),
		Stages:      executor,
		Tasks:       memory,
		Activities:  memory,
		Notes:       memory,
		Notifier:    memory,
		Cadences:    memory,
		Enrollments: memory,
	}

	engine := automation.NewEngine(logger, store, reg, collaborators)
	scheduler := automation.NewScheduler(logger, nil, engine, store)
	macroRunner := macro.NewRunner(logger, store, engine)
	workflowService := services.NewWorkflow(store, reg)
	macroService := services.NewMacro(store, reg)

	handlers := web.NewAPIHandlers(executor, approvals, engine, scheduler, macroRunner,
		workflowService, macroService, store,
		validator.New(validator.WithRequiredStructEnabled()), reg)

	app := fiber.New()

	crm := app.Group("/crm", web.RequireActor())
	crm.Post("/transition", handlers.ExecuteTransition, web.RequireCapability(models.CapTransitionExecute))
	crm.Get("/transition", handlers.ListTransitions)
	crm.Post("/stage-change", handlers.StageChange, web.RequireCapability(models.CapTransitionExecute))
	crm.Post("/check-transition", handlers.CheckTransition)
	crm.Get("/records/:id/history", handlers.RecordHistory)

	approvalsGroup := app.Group("/approvals", web.RequireActor())
	approvalsGroup.Get("/", handlers.ListApprovals)
	approvalsGroup.Post("/request", handlers.RequestApproval, web.RequireCapability(models.CapApprovalRequest))
	approvalsGroup.Post("/:id/resolve", handlers.ResolveApproval, web.RequireCapability(models.CapApprovalResolve))

	auto := app.Group("/automation", web.RequireActor())
	auto.Post("/workflows", handlers.CreateWorkflow, web.RequireCapability(models.CapWorkflowManage))
	auto.Post("/macros/:id/run", handlers.RunMacro, web.RequireCapability(models.CapMacroRun))

	seedCRM(t, store)

	return app, store
}

func seedCRM(t *testing.T, store *file.Persistence) {
	t.Helper()

	bp := &models.Blueprint{
		OrgID:    "org-1",
		ModuleID: "deals",
		Stages:   []string{"qualification", "proposal", "negotiation", "won"},
		Transitions: []models.Transition{
			{From: "proposal", To: "negotiation",
				RequiredFields: []string{"amount"}},
			{From: "negotiation", To: "won", RequiresApproval: true},
		},
	}
	require.NoError(t, store.BlueprintRepository().Save(t.Context(), bp))

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

	mac := &models.Macro{
		ID:           "mac-1",
		OrgID:        "org-1",
		ModuleID:     "deals",
		Name:         "note it",
		AllowedRoles: []models.Role{models.RoleAdmin, models.RoleManager},
		Actions: []models.WorkflowAction{
			{ID: "a1", Type: models.ActionAddNote,
				Config: map[string]any{"body": "done"}, Order: 1},
		},
	}
	require.NoError(t, store.MacroRepository().Save(t.Context(), mac))
}

func doJSON(t *testing.T, app *fiber.App, method, url, role string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader

	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")

	if role != "" {
		req.Header.Set("X-Org-ID", "org-1")
		req.Header.Set("X-User-ID", "user-1")
		req.Header.Set("X-User-Role", role)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	parsed := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}

	return resp, parsed
}

func TestTransition_MissingIdentity(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/crm/transition", "",
		web.ExecuteTransitionRequest{RecordID: "rec-1", ToStage: "negotiation"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTransition_ReadOnlyRoleForbidden(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/crm/transition", "crm_readonly",
		web.ExecuteTransitionRequest{RecordID: "rec-1", ToStage: "negotiation"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestTransition_Commit(t *testing.T) {
	app, store := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/crm/transition", "crm_rep",
		web.ExecuteTransitionRequest{RecordID: "rec-1", ToStage: "negotiation"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["success"])

	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "committed", result["outcome"])

	record, err := store.RecordRepository().GetByID(t.Context(), "org-1", "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "negotiation", record.Stage)
}

func TestStageChange_BlockedReturns422(t *testing.T) {
	app, _ := setupTestApp(t)

	// Undeclared edge from proposal.
	resp, body := doJSON(t, app, http.MethodPost, "/crm/stage-change", "crm_rep",
		web.ExecuteTransitionRequest{RecordID: "rec-1", ToStage: "won"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["gatingRequired"])
}

func TestCheckTransition_NeverMutates(t *testing.T) {
	app, store := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/crm/check-transition", "crm_readonly",
		web.CheckTransitionRequest{RecordID: "rec-1", ToStage: "negotiation"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["success"])
	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "committed", result["outcome"])

	record, err := store.RecordRepository().GetByID(t.Context(), "org-1", "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "proposal", record.Stage)
}

func TestListTransitions(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/crm/transition?record_id=rec-1", "crm_rep", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	transitions, ok := body["transitions"].([]any)
	require.True(t, ok)
	assert.Len(t, transitions, 1)

	resp, _ = doJSON(t, app, http.MethodGet, "/crm/transition", "crm_rep", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApprovalFlow(t *testing.T) {
	app, store := setupTestApp(t)

	// Move to negotiation so the approval-gated edge applies.
	resp, _ := doJSON(t, app, http.MethodPost, "/crm/transition", "crm_rep",
		web.ExecuteTransitionRequest{RecordID: "rec-1", ToStage: "negotiation"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/crm/transition", "crm_rep",
		web.ExecuteTransitionRequest{RecordID: "rec-1", ToStage: "won"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, false, body["success"])

	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "awaiting_approval", result["outcome"])

	approvalID, _ := result["approval_id"].(string)
	require.NotEmpty(t, approvalID)

	// The record waits at its current stage.
	record, err := store.RecordRepository().GetByID(t.Context(), "org-1", "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "negotiation", record.Stage)

	// A rep may not resolve.
	resp, _ = doJSON(t, app, http.MethodPost, "/approvals/"+approvalID+"/resolve", "crm_rep",
		web.ResolveApprovalRequest{Decision: "approved"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/approvals/"+approvalID+"/resolve", "crm_manager",
		web.ResolveApprovalRequest{Decision: "approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	record, err = store.RecordRepository().GetByID(t.Context(), "org-1", "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "won", record.Stage)

	// Second resolver loses the race.
	resp, _ = doJSON(t, app, http.MethodPost, "/approvals/"+approvalID+"/resolve", "crm_manager",
		web.ResolveApprovalRequest{Decision: "rejected"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateWorkflow_Validation(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/automation/workflows", "crm_manager",
		web.CreateWorkflowRequest{ModuleID: "deals", Name: "no actions",
			Trigger: models.TriggerOnStageChange})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/automation/workflows", "crm_manager",
		web.CreateWorkflowRequest{
			ModuleID: "deals",
			Name:     "note on change",
			Trigger:  models.TriggerOnStageChange,
			Enabled:  true,
			Actions: []web.ActionInput{
				{Type: "add_note", Config: map[string]any{"body": "moved"}, Order: 1},
			},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["id"])
}

func TestRunMacro_RoleGate(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/automation/macros/mac-1/run", "crm_rep",
		web.RunMacroRequest{RecordID: "rec-1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/automation/macros/mac-1/run", "crm_manager",
		web.RunMacroRequest{RecordID: "rec-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
}
