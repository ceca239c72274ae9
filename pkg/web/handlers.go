package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/pipewise/pipewise/pkg/approval"
	"github.com/pipewise/pipewise/pkg/automation"
	"github.com/pipewise/pipewise/pkg/macro"
	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/registry"
	"github.com/pipewise/pipewise/pkg/services"
	"github.com/pipewise/pipewise/pkg/transition"
)

type APIHandlers struct {
	executor        *transition.Executor
	approvals       *approval.Service
	engine          *automation.Engine
	scheduler       *automation.Scheduler
	macros          *macro.Runner
	workflowService *services.Workflow
	macroService    *services.Macro
	persistence     persistence.Persistence
	validator       *validator.Validate
	registry        *registry.Registry
}

func NewAPIHandlers(
	executor *transition.Executor,
	approvals *approval.Service,
	engine *automation.Engine,
	scheduler *automation.Scheduler,
	macros *macro.Runner,
	workflowService *services.Workflow,
	macroService *services.Macro,
	persist persistence.Persistence,
	validate *validator.Validate,
	reg *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		executor:        executor,
		approvals:       approvals,
		engine:          engine,
		scheduler:       scheduler,
		macros:          macros,
		workflowService: workflowService,
		macroService:    macroService,
		persistence:     persist,
		validator:       validate,
		registry:        reg,
	}
}

// ExecuteTransition handles POST /crm/transition.
func (h *APIHandlers) ExecuteTransition(c fiber.Ctx) error {
	req, fields, err := h.parseTransition(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	actor := ActorFrom(c)

	result, err := h.executor.Execute(c.Context(), transition.Request{
		OrgID:    actor.OrgID,
		RecordID: req.RecordID,
		ToStage:  req.ToStage,
		Reason:   req.Reason,
		Fields:   fields,
		Actor:    transition.Actor{ID: actor.UserID, Role: actor.Role},
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": result.Committed(),
		"result":  result,
	})
}

// StageChange handles POST /crm/stage-change: the drag-drop path. Gating
// outcomes return 422 with gatingRequired so the UI can open its gating
// dialog instead of treating the response as a hard failure.
func (h *APIHandlers) StageChange(c fiber.Ctx) error {
	req, fields, err := h.parseTransition(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	actor := ActorFrom(c)

	result, err := h.executor.Execute(c.Context(), transition.Request{
		OrgID:    actor.OrgID,
		RecordID: req.RecordID,
		ToStage:  req.ToStage,
		Reason:   req.Reason,
		Fields:   fields,
		Actor:    transition.Actor{ID: actor.UserID, Role: actor.Role},
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	if result.Outcome == transition.OutcomeBlocked {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success":        false,
			"gatingRequired": true,
			"result":         result,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"result":  result,
	})
}

// ListTransitions handles GET /crm/transition: available edges for a record,
// or a single-target validation when to_stage is supplied.
func (h *APIHandlers) ListTransitions(c fiber.Ctx) error {
	recordID := c.Query("record_id")
	if recordID == "" {
		return badRequest(c, "record_id query parameter is required")
	}

	actor := ActorFrom(c)

	if toStage := c.Query("to_stage"); toStage != "" {
		result, err := h.executor.Check(c.Context(), transition.Request{
			OrgID:    actor.OrgID,
			RecordID: recordID,
			ToStage:  toStage,
			Reason:   c.Query("reason"),
			Actor:    transition.Actor{ID: actor.UserID, Role: actor.Role},
		})
		if err != nil {
			return handleServiceError(c, err)
		}

		return c.JSON(result)
	}

	transitions, err := h.executor.AvailableTransitions(c.Context(), actor.OrgID, recordID, actor.Role)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"transitions": transitions})
}

// CheckTransition handles POST /crm/check-transition: a dry check. Always
// 200; validity is embedded in the result.
func (h *APIHandlers) CheckTransition(c fiber.Ctx) error {
	var req CheckTransitionRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	fields, err := models.FieldMapFrom(req.Payload)
	if err != nil {
		return badRequest(c, err.Error())
	}

	actor := ActorFrom(c)

	result, err := h.executor.Check(c.Context(), transition.Request{
		OrgID:    actor.OrgID,
		RecordID: req.RecordID,
		ToStage:  req.ToStage,
		Reason:   req.Reason,
		Fields:   fields,
		Actor:    transition.Actor{ID: actor.UserID, Role: actor.Role},
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": result.Committed(),
		"result":  result,
	})
}

// RecordHistory handles GET /crm/records/:id/history.
func (h *APIHandlers) RecordHistory(c fiber.Ctx) error {
	recordID := c.Params("id")
	if recordID == "" {
		return badRequest(c, "Record ID is required")
	}

	actor := ActorFrom(c)

	entries, err := h.persistence.RecordRepository().History(c.Context(), actor.OrgID, recordID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"history": entries})
}

// RequestApproval handles POST /approvals/request. A non-matching process
// is answered with requiresApproval:false, distinct from any error.
func (h *APIHandlers) RequestApproval(c fiber.Ctx) error {
	var req CreateApprovalRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	fields, err := models.FieldMapFrom(req.Fields)
	if err != nil {
		return badRequest(c, err.Error())
	}

	actor := ActorFrom(c)

	result, err := h.approvals.Create(c.Context(), approval.CreateInput{
		OrgID:     actor.OrgID,
		ModuleID:  req.ModuleID,
		RecordID:  req.RecordID,
		ProcessID: req.ProcessID,
		RuleID:    req.RuleID,
		Trigger:   req.Trigger,
		Payload: models.ActionPayload{
			Kind:      req.Kind,
			StageFrom: req.StageFrom,
			StageTo:   req.StageTo,
			Reason:    req.Reason,
			Fields:    fields,
		},
		Context:     req.Context,
		RequestedBy: actor.UserID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	response := fiber.Map{
		"success":          true,
		"requiresApproval": result.RequiresApproval,
	}

	if result.Request != nil {
		response["approvalId"] = result.Request.ID
	}

	return c.JSON(response)
}

// ListApprovals handles GET /approvals.
func (h *APIHandlers) ListApprovals(c fiber.Ctx) error {
	actor := ActorFrom(c)

	requests, err := h.approvals.ListPending(c.Context(), actor.OrgID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"approvals": requests})
}

// ResolveApproval handles POST /approvals/:id/resolve.
func (h *APIHandlers) ResolveApproval(c fiber.Ctx) error {
	approvalID := c.Params("id")
	if approvalID == "" {
		return badRequest(c, "Approval ID is required")
	}

	var req ResolveApprovalRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	actor := ActorFrom(c)

	result, err := h.approvals.Resolve(c.Context(), actor.OrgID, approvalID, models.ApprovalStatus(req.Decision), actor.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"request": result.Request,
		"record":  result.Record,
	})
}

// RunWorkflow handles POST /automation/run: a manual execution of one
// workflow against a record.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	var req RunWorkflowRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	actor := ActorFrom(c)

	run, err := h.runWorkflow(c, actor, req.WorkflowID, req.RecordID, req.DryRun)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "result": run})
}

// TestWorkflow handles GET /automation/run: a dry run driven by query
// parameters.
func (h *APIHandlers) TestWorkflow(c fiber.Ctx) error {
	workflowID := c.Query("workflow_id")
	recordID := c.Query("record_id")

	if workflowID == "" || recordID == "" {
		return badRequest(c, "workflow_id and record_id query parameters are required")
	}

	actor := ActorFrom(c)

	run, err := h.runWorkflow(c, actor, workflowID, recordID, true)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "result": run})
}

func (h *APIHandlers) runWorkflow(c fiber.Ctx, actor Actor, workflowID, recordID string, dryRun bool) (*models.AutomationRun, error) {
	workflow, err := h.workflowService.Get(c.Context(), actor.OrgID, workflowID)
	if err != nil {
		return nil, err
	}

	record, err := h.persistence.RecordRepository().GetByID(c.Context(), actor.OrgID, recordID)
	if err != nil {
		return nil, err
	}

	return h.engine.ExecuteWorkflow(c.Context(), automation.ExecuteInput{
		OrgID:    actor.OrgID,
		Workflow: workflow,
		Record:   record,
		Trigger:  models.TriggerManual,
		ActorID:  actor.UserID,
		DryRun:   dryRun,
	})
}

// RetryRun handles POST /automation/runs/:id/retry.
func (h *APIHandlers) RetryRun(c fiber.Ctx) error {
	runID := c.Params("id")
	if runID == "" {
		return badRequest(c, "Run ID is required")
	}

	var req RetryRunRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	actor := ActorFrom(c)

	if req.DelaySeconds > 0 {
		jobID, err := h.scheduler.ScheduleRetry(c.Context(), actor.OrgID, runID, actor.UserID,
			time.Duration(req.DelaySeconds)*time.Second)
		if err != nil {
			return h.retryError(c, err)
		}

		return c.JSON(fiber.Map{"success": true, "jobId": jobID})
	}

	run, err := h.engine.Retry(c.Context(), actor.OrgID, runID, actor.UserID)
	if err != nil {
		return h.retryError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "result": run})
}

func (h *APIHandlers) retryError(c fiber.Ctx, err error) error {
	if errors.Is(err, automation.ErrRetryNotFailed) {
		return badRequest(c, err.Error())
	}

	return handleServiceError(c, err)
}

// ListRuns handles GET /automation/runs.
func (h *APIHandlers) ListRuns(c fiber.Ctx) error {
	actor := ActorFrom(c)

	limit := 0

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "invalid limit")
		}

		limit = parsed
	}

	runs, err := h.persistence.RunRepository().List(c.Context(), actor.OrgID, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

// GetRun handles GET /automation/runs/:id.
func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	runID := c.Params("id")
	if runID == "" {
		return badRequest(c, "Run ID is required")
	}

	actor := ActorFrom(c)

	run, err := h.persistence.RunRepository().GetByID(c.Context(), actor.OrgID, runID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

// RunMacro handles POST /automation/macros/:id/run.
func (h *APIHandlers) RunMacro(c fiber.Ctx) error {
	macroID := c.Params("id")
	if macroID == "" {
		return badRequest(c, "Macro ID is required")
	}

	var req RunMacroRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	actor := ActorFrom(c)

	run, err := h.macros.Run(c.Context(), macro.Input{
		OrgID:    actor.OrgID,
		MacroID:  macroID,
		RecordID: req.RecordID,
		ActorID:  actor.UserID,
		Role:     actor.Role,
		DryRun:   req.DryRun,
	})
	if err != nil {
		if errors.Is(err, macro.ErrRoleDenied) {
			return forbidden(c, err.Error())
		}

		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "result": run})
}

// HealthCheck handles GET /health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) parseTransition(c fiber.Ctx) (*ExecuteTransitionRequest, map[string]models.FieldValue, error) {
	var req ExecuteTransitionRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return nil, nil, errInvalidJSON
	}

	err = h.validator.Struct(req)
	if err != nil {
		return nil, nil, err
	}

	fields, err := models.FieldMapFrom(req.Payload)
	if err != nil {
		return nil, nil, err
	}

	return &req, fields, nil
}
