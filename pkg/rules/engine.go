// Package rules evaluates data-driven validation rules independently of the
// blueprint stage graph.
package rules

import (
	"context"
	"log/slog"

	"github.com/pipewise/pipewise/pkg/models"
)

// EvalContext narrows which rules apply and supplies the pending change.
type EvalContext struct {
	Trigger   models.RuleTrigger
	FromStage string
	ToStage   string
	Pending   map[string]models.FieldValue
}

// Result accumulates every failing rule; callers must be able to show all
// violations at once rather than the first one found.
type Result struct {
	Valid  bool               `json:"valid"`
	Errors []models.RuleError `json:"errors,omitempty"`
}

type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Evaluate filters rules by trigger (and stage edge for transitions) and
// evaluates each against the record merged with pending updates. Rules do
// not short-circuit each other. Zero matching rules is trivially valid.
func (e *Engine) Evaluate(ctx context.Context, record *models.Record, ruleSet []*models.ValidationRule, eval EvalContext) Result {
	effective := record.EffectiveData(eval.Pending)
	result := Result{Valid: true}

	for _, rule := range ruleSet {
		if !rule.AppliesTo(eval.Trigger, eval.FromStage, eval.ToStage) {
			continue
		}

		passed, err := models.EvaluateAll(rule.Conditions, effective, record.Data)
		if err != nil {
			e.logger.WarnContext(ctx, "Rule condition evaluation failed",
				"rule", rule.RuleName, "record_id", record.ID, "error", err)

			passed = false
		}

		if passed {
			continue
		}

		result.Valid = false
		result.Errors = append(result.Errors, models.RuleError{
			Field:    rule.Field,
			Message:  rule.ErrorMessage,
			RuleName: rule.RuleName,
			RuleType: rule.RuleType,
		})
	}

	return result
}

// MatchApprovalProcess returns the first approval process gating the
// candidate mutation, or nil when no gate matches.
func (e *Engine) MatchApprovalProcess(ctx context.Context, record *models.Record, processes []*models.ApprovalProcess, eval EvalContext) *models.ApprovalProcess {
	effective := record.EffectiveData(eval.Pending)

	for _, process := range processes {
		if !process.AppliesTo(eval.Trigger, eval.FromStage, eval.ToStage) {
			continue
		}

		matched, err := models.EvaluateAll(process.Conditions, effective, record.Data)
		if err != nil {
			e.logger.WarnContext(ctx, "Approval process condition evaluation failed",
				"process", process.Name, "record_id", record.ID, "error", err)

			continue
		}

		if matched {
			return process
		}
	}

	return nil
}
