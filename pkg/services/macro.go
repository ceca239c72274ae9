package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/registry"
)

// Macro manages macro configuration.
type Macro struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

func NewMacro(persist persistence.Persistence, reg *registry.Registry) *Macro {
	return &Macro{persistence: persist, registry: reg}
}

func (s *Macro) List(ctx context.Context, orgID string) ([]*models.Macro, error) {
	return s.persistence.MacroRepository().List(ctx, orgID)
}

func (s *Macro) Get(ctx context.Context, orgID, id string) (*models.Macro, error) {
	return s.persistence.MacroRepository().GetByID(ctx, orgID, id)
}

func (s *Macro) Create(ctx context.Context, macro *models.Macro) (*models.Macro, error) {
	if macro.ID == "" {
		macro.ID = uuid.New().String()
	}

	for i := range macro.Actions {
		if macro.Actions[i].ID == "" {
			macro.Actions[i].ID = uuid.New().String()
		}
	}

	err := s.validate(macro)
	if err != nil {
		return nil, err
	}

	err = s.persistence.MacroRepository().Save(ctx, macro)
	if err != nil {
		return nil, err
	}

	return macro, nil
}

// Update applies a partial update to an existing macro.
func (s *Macro) Update(ctx context.Context, orgID, id string, patch MacroPatch) (*models.Macro, error) {
	macro, err := s.persistence.MacroRepository().GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	patch.apply(macro)

	err = s.validate(macro)
	if err != nil {
		return nil, err
	}

	err = s.persistence.MacroRepository().Save(ctx, macro)
	if err != nil {
		return nil, err
	}

	return macro, nil
}

func (s *Macro) Delete(ctx context.Context, orgID, id string) error {
	return s.persistence.MacroRepository().Delete(ctx, orgID, id)
}

// MacroPatch holds optional replacement values for an update.
type MacroPatch struct {
	Name         *string
	Actions      *[]models.WorkflowAction
	AllowedRoles *[]models.Role
}

func (p MacroPatch) apply(macro *models.Macro) {
	if p.Name != nil {
		macro.Name = *p.Name
	}

	if p.Actions != nil {
		macro.Actions = *p.Actions

		for i := range macro.Actions {
			if macro.Actions[i].ID == "" {
				macro.Actions[i].ID = uuid.New().String()
			}
		}
	}

	if p.AllowedRoles != nil {
		macro.AllowedRoles = *p.AllowedRoles
	}
}

func (s *Macro) validate(macro *models.Macro) error {
	if macro.Name == "" {
		return ErrNameRequired
	}

	if macro.ModuleID == "" {
		return ErrModuleRequired
	}

	if len(macro.Actions) == 0 {
		return ErrActionsRequired
	}

	for _, role := range macro.AllowedRoles {
		_, err := models.ParseRole(string(role))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	err := s.registry.ValidateActions(macro.Actions)
	if err != nil {
		return NewValidationError("macro.validate", err.Error(), ErrInvalidRequest)
	}

	return nil
}
