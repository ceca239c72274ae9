package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/registry"
)

// Workflow manages workflow configuration. Every save validates the action
// configs against their registered schemas and keeps the cron schedule row
// for scheduled workflows in sync.
type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

func NewWorkflow(persist persistence.Persistence, reg *registry.Registry) *Workflow {
	return &Workflow{persistence: persist, registry: reg}
}

// HealthCheck checks the health of the persistence layer.
func (s *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (s *Workflow) List(ctx context.Context, orgID string) ([]*models.Workflow, error) {
	return s.persistence.WorkflowRepository().List(ctx, orgID)
}

func (s *Workflow) Get(ctx context.Context, orgID, id string) (*models.Workflow, error) {
	return s.persistence.WorkflowRepository().GetByID(ctx, orgID, id)
}

// Create validates and persists a new workflow.
func (s *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	for i := range workflow.Actions {
		if workflow.Actions[i].ID == "" {
			workflow.Actions[i].ID = uuid.New().String()
		}
	}

	err := s.validate(workflow)
	if err != nil {
		return nil, err
	}

	err = s.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	err = s.syncSchedule(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// Update applies a partial update to an existing workflow.
func (s *Workflow) Update(ctx context.Context, orgID, id string, patch WorkflowPatch) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	patch.apply(workflow)

	err = s.validate(workflow)
	if err != nil {
		return nil, err
	}

	err = s.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	err = s.syncSchedule(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// Delete soft-deletes the workflow and removes its schedule row.
func (s *Workflow) Delete(ctx context.Context, orgID, id string) error {
	err := s.persistence.WorkflowRepository().Delete(ctx, orgID, id)
	if err != nil {
		return err
	}

	err = s.persistence.ScheduleRepository().Delete(ctx, orgID, scheduleID(id))
	if err != nil && !persistence.IsNotFound(err) {
		return err
	}

	return nil
}

// WorkflowPatch holds optional replacement values for an update. Nil fields
// leave the stored value untouched.
type WorkflowPatch struct {
	Name          *string
	Trigger       *models.TriggerType
	TriggerConfig *map[string]any
	Conditions    *[]models.Condition
	Actions       *[]models.WorkflowAction
	Enabled       *bool
	Priority      *int
}

func (p WorkflowPatch) apply(workflow *models.Workflow) {
	if p.Name != nil {
		workflow.Name = *p.Name
	}

	if p.Trigger != nil {
		workflow.Trigger = *p.Trigger
	}

	if p.TriggerConfig != nil {
		workflow.TriggerConfig = *p.TriggerConfig
	}

	if p.Conditions != nil {
		workflow.Conditions = *p.Conditions
	}

	if p.Actions != nil {
		workflow.Actions = *p.Actions

		for i := range workflow.Actions {
			if workflow.Actions[i].ID == "" {
				workflow.Actions[i].ID = uuid.New().String()
			}
		}
	}

	if p.Enabled != nil {
		workflow.Enabled = *p.Enabled
	}

	if p.Priority != nil {
		workflow.Priority = *p.Priority
	}
}

func (s *Workflow) validate(workflow *models.Workflow) error {
	if workflow.Name == "" {
		return ErrNameRequired
	}

	if workflow.ModuleID == "" {
		return ErrModuleRequired
	}

	switch workflow.Trigger {
	case models.TriggerOnCreate, models.TriggerOnUpdate, models.TriggerOnStageChange,
		models.TriggerScheduled, models.TriggerWebform, models.TriggerManual:
	case "":
		return ErrTriggerRequired
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTrigger, workflow.Trigger)
	}

	if len(workflow.Actions) == 0 {
		return ErrActionsRequired
	}

	seen := make(map[int]bool, len(workflow.Actions))

	for _, action := range workflow.Actions {
		if seen[action.Order] {
			return ErrInvalidActionOrder
		}

		seen[action.Order] = true
	}

	if workflow.Trigger == models.TriggerScheduled {
		expr, _ := workflow.TriggerConfig["cron"].(string)
		if expr == "" {
			return ErrInvalidCron
		}

		_, err := cron.ParseStandard(expr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCron, err)
		}
	}

	err := s.registry.ValidateActions(workflow.Actions)
	if err != nil {
		return NewValidationError("workflow.validate", err.Error(), ErrInvalidRequest)
	}

	return nil
}

// syncSchedule keeps the schedule row aligned with the workflow's trigger:
// scheduled workflows get one, everything else has none.
func (s *Workflow) syncSchedule(ctx context.Context, workflow *models.Workflow) error {
	if workflow.Trigger != models.TriggerScheduled {
		err := s.persistence.ScheduleRepository().Delete(ctx, workflow.OrgID, scheduleID(workflow.ID))
		if err != nil && !persistence.IsNotFound(err) {
			return err
		}

		return nil
	}

	expr, _ := workflow.TriggerConfig["cron"].(string)

	schedule, err := models.NewSchedule(scheduleID(workflow.ID), workflow.OrgID, workflow.ID, expr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}

	schedule.Active = workflow.Enabled

	return s.persistence.ScheduleRepository().Save(ctx, schedule)
}

func scheduleID(workflowID string) string {
	return "schedule-" + workflowID
}
