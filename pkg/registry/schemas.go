package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pipewise/pipewise/pkg/models"
)

// ValidateConfig checks an action's configuration against the JSON schema
// exposed by its factory. Workflow and macro saves run every action config
// through this so invalid automation never reaches the engine.
func (r *Registry) ValidateConfig(actionType models.ActionType, config map[string]any) error {
	factory, ok := r.actionFactories[string(actionType)]
	if !ok {
		return fmt.Errorf("action type %q not registered", actionType)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("schema validation for %q: %w", actionType, err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid %q config: %s", actionType, errs[0].String())
		}

		return fmt.Errorf("invalid %q config", actionType)
	}

	return nil
}

// ValidateActions validates every action in a workflow or macro action list.
func (r *Registry) ValidateActions(actions []models.WorkflowAction) error {
	for _, action := range actions {
		err := r.ValidateConfig(action.Type, action.Config)
		if err != nil {
			return fmt.Errorf("action %s: %w", action.ID, err)
		}
	}

	return nil
}
