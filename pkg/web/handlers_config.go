package web

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/services"
)

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	actor := ActorFrom(c)

	workflows, err := h.workflowService.List(c.Context(), actor.OrgID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	actor := ActorFrom(c)

	workflow, err := h.workflowService.Get(c.Context(), actor.OrgID, id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	actor := ActorFrom(c)

	workflow := &models.Workflow{
		OrgID:         actor.OrgID,
		ModuleID:      req.ModuleID,
		Name:          req.Name,
		Trigger:       req.Trigger,
		TriggerConfig: req.TriggerConfig,
		Conditions:    req.Conditions,
		Actions:       toWorkflowActions(req.Actions),
		Enabled:       req.Enabled,
		Priority:      req.Priority,
	}

	created, err := h.workflowService.Create(c.Context(), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	patch := services.WorkflowPatch{
		Name:          req.Name,
		Trigger:       req.Trigger,
		TriggerConfig: req.TriggerConfig,
		Conditions:    req.Conditions,
		Enabled:       req.Enabled,
		Priority:      req.Priority,
	}

	if req.Actions != nil {
		actions := toWorkflowActions(*req.Actions)
		patch.Actions = &actions
	}

	actor := ActorFrom(c)

	updated, err := h.workflowService.Update(c.Context(), actor.OrgID, id, patch)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	actor := ActorFrom(c)

	err := h.workflowService.Delete(c.Context(), actor.OrgID, id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ListMacros(c fiber.Ctx) error {
	actor := ActorFrom(c)

	macros, err := h.macroService.List(c.Context(), actor.OrgID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"macros": macros})
}

func (h *APIHandlers) GetMacro(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Macro ID is required")
	}

	actor := ActorFrom(c)

	found, err := h.macroService.Get(c.Context(), actor.OrgID, id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Macro not found")
		}

		return internalError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateMacro(c fiber.Ctx) error {
	var req CreateMacroRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	actor := ActorFrom(c)

	created, err := h.macroService.Create(c.Context(), &models.Macro{
		OrgID:        actor.OrgID,
		ModuleID:     req.ModuleID,
		Name:         req.Name,
		Actions:      toWorkflowActions(req.Actions),
		AllowedRoles: toRoles(req.AllowedRoles),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateMacro(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Macro ID is required")
	}

	var req UpdateMacroRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	patch := services.MacroPatch{Name: req.Name}

	if req.Actions != nil {
		actions := toWorkflowActions(*req.Actions)
		patch.Actions = &actions
	}

	if req.AllowedRoles != nil {
		roles := toRoles(*req.AllowedRoles)
		patch.AllowedRoles = &roles
	}

	actor := ActorFrom(c)

	updated, err := h.macroService.Update(c.Context(), actor.OrgID, id, patch)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Macro not found")
		}

		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteMacro(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Macro ID is required")
	}

	actor := ActorFrom(c)

	err := h.macroService.Delete(c.Context(), actor.OrgID, id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Macro not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
