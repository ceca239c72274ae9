package models

import (
	"fmt"
	"strings"
)

// ConditionOperator is the closed set of comparison operators usable in
// validation rules and workflow conditions.
type ConditionOperator string

const (
	OpEquals         ConditionOperator = "equals"
	OpNotEquals      ConditionOperator = "not_equals"
	OpContains       ConditionOperator = "contains"
	OpGreaterThan    ConditionOperator = "gt"
	OpGreaterOrEqual ConditionOperator = "gte"
	OpLessThan       ConditionOperator = "lt"
	OpLessOrEqual    ConditionOperator = "lte"
	OpIsEmpty        ConditionOperator = "is_empty"
	OpIsNotEmpty     ConditionOperator = "is_not_empty"
	OpChangedTo      ConditionOperator = "changed_to"
)

// Condition is a single data-driven predicate over a record's fields.
type Condition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required"`
	Value    any               `json:"value,omitempty"`
}

// Evaluate applies the condition against the effective field map. previous
// holds the record's fields before the pending change and is only consulted
// by the changed_to operator; it may be nil.
func (c Condition) Evaluate(data, previous map[string]FieldValue) (bool, error) {
	current := data[c.Field]

	switch c.Operator {
	case OpIsEmpty:
		return current.IsEmpty(), nil
	case OpIsNotEmpty:
		return !current.IsEmpty(), nil
	}

	expected, err := FieldValueFrom(c.Value)
	if err != nil {
		return false, fmt.Errorf("condition on %q: %w", c.Field, err)
	}

	switch c.Operator {
	case OpEquals:
		return current.Equal(expected), nil
	case OpNotEquals:
		return !current.Equal(expected), nil
	case OpContains:
		return contains(current, expected), nil
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return compareOrdered(c.Operator, current, expected)
	case OpChangedTo:
		if !current.Equal(expected) {
			return false, nil
		}

		prev, had := previous[c.Field]

		return !had || !prev.Equal(expected), nil
	default:
		return false, fmt.Errorf("unsupported condition operator %q", c.Operator)
	}
}

// EvaluateAll evaluates conditions as a logical AND. An empty condition list
// matches everything.
func EvaluateAll(conditions []Condition, data, previous map[string]FieldValue) (bool, error) {
	for _, condition := range conditions {
		ok, err := condition.Evaluate(data, previous)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

func contains(haystack, needle FieldValue) bool {
	switch haystack.Kind {
	case FieldKindString:
		return needle.Kind == FieldKindString && strings.Contains(haystack.Str, needle.Str)
	case FieldKindList:
		for _, item := range haystack.List {
			if item.Equal(needle) {
				return true
			}
		}

		return false
	default:
		return false
	}
}

func compareOrdered(op ConditionOperator, current, expected FieldValue) (bool, error) {
	var diff float64

	switch {
	case current.Kind == FieldKindNumber && expected.Kind == FieldKindNumber:
		diff = current.Num - expected.Num
	case current.Kind == FieldKindTime && expected.Kind == FieldKindTime:
		diff = float64(current.Time.Sub(expected.Time))
	case current.Kind == FieldKindString && expected.Kind == FieldKindString:
		diff = float64(strings.Compare(current.Str, expected.Str))
	default:
		return false, fmt.Errorf("cannot order-compare %s against %s", current.Kind, expected.Kind)
	}

	switch op {
	case OpGreaterThan:
		return diff > 0, nil
	case OpGreaterOrEqual:
		return diff >= 0, nil
	case OpLessThan:
		return diff < 0, nil
	default:
		return diff <= 0, nil
	}
}
