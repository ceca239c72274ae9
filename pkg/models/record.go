package models

import "time"

// Module is a record type owned by an organization (Leads, Deals, ...).
type Module struct {
	ID    string `json:"id"     validate:"required"`
	OrgID string `json:"org_id" validate:"required"`
	Key   string `json:"key"    validate:"required"`
	Name  string `json:"name"   validate:"required"`
}

// Record is a business record moving through a module's pipeline. The engine
// reads data/stage and writes stage plus history; field CRUD is owned by an
// external collaborator.
type Record struct {
	ID       string `json:"id"        validate:"required"`
	OrgID    string `json:"org_id"    validate:"required"`
	ModuleID string `json:"module_id" validate:"required"`
	OwnerID  string `json:"owner_id,omitempty"`

	// Stage is empty when the module has no blueprint.
	Stage string                `json:"stage,omitempty"`
	Data  map[string]FieldValue `json:"data"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy, used to snapshot a record before mutation so
// automation sees the previous state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Data = make(map[string]FieldValue, len(r.Data))

	for key, value := range r.Data {
		clone.Data[key] = value
	}

	return &clone
}

// EffectiveData merges pending updates over the stored data without mutating
// either map.
func (r *Record) EffectiveData(pending map[string]FieldValue) map[string]FieldValue {
	merged := make(map[string]FieldValue, len(r.Data)+len(pending))

	for key, value := range r.Data {
		merged[key] = value
	}

	for key, value := range pending {
		merged[key] = value
	}

	return merged
}

// StageHistoryEntry is one row in a record's append-only stage audit trail.
type StageHistoryEntry struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	RecordID  string    `json:"record_id"`
	FromStage string    `json:"from_stage"`
	ToStage   string    `json:"to_stage"`
	Reason    string    `json:"reason,omitempty"`
	ActorID   string    `json:"actor_id"`
	At        time.Time `json:"at"`
}

// AuditEntry records an engine-level mutation for compliance review.
type AuditEntry struct {
	ID       string         `json:"id"`
	OrgID    string         `json:"org_id"`
	RecordID string         `json:"record_id"`
	Action   string         `json:"action"`
	ActorID  string         `json:"actor_id"`
	Details  map[string]any `json:"details,omitempty"`
	At       time.Time      `json:"at"`
}
