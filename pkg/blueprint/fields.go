package blueprint

import "github.com/pipewise/pipewise/pkg/models"

// MissingField names one required field a transition still lacks.
type MissingField struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// MissingFields computes which of the transition's required fields remain
// unfilled after merging the pending payload over the record's data. A field
// counts as filled when present and non-empty after the merge.
func MissingFields(transition *models.Transition, record *models.Record, pending map[string]models.FieldValue) []MissingField {
	if transition == nil || len(transition.RequiredFields) == 0 {
		return nil
	}

	effective := record.EffectiveData(pending)
	missing := make([]MissingField, 0)

	for _, field := range transition.RequiredFields {
		value, ok := effective[field]
		if !ok || value.IsEmpty() {
			missing = append(missing, MissingField{
				Field:   field,
				Message: "field is required before this stage change",
			})
		}
	}

	return missing
}
