// Package file provides file-based persistence used by tests and local
// development. Entities are stored as one JSON document per ID; the
// stage-commit and approval-resolve paths serialize behind a store-wide
// mutex to honor the optimistic-concurrency contract.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pipewise/pipewise/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root string
	mu   sync.Mutex

	blueprints *BlueprintRepository
	records    *RecordRepository
	rules      *RuleRepository
	approvals  *ApprovalRepository
	workflows  *WorkflowRepository
	macros     *MacroRepository
	runs       *RunRepository
	schedules  *ScheduleRepository
}

func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.blueprints = &BlueprintRepository{store: p}
	p.records = &RecordRepository{store: p}
	p.rules = &RuleRepository{store: p}
	p.approvals = &ApprovalRepository{store: p}
	p.workflows = &WorkflowRepository{store: p}
	p.macros = &MacroRepository{store: p}
	p.runs = &RunRepository{store: p}
	p.schedules = &ScheduleRepository{store: p}

	return p
}

func (p *Persistence) BlueprintRepository() persistence.BlueprintRepository {
	return p.blueprints
}

func (p *Persistence) RecordRepository() persistence.RecordRepository {
	return p.records
}

func (p *Persistence) RuleRepository() persistence.RuleRepository {
	return p.rules
}

func (p *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return p.approvals
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) MacroRepository() persistence.MacroRepository {
	return p.macros
}

func (p *Persistence) RunRepository() persistence.RunRepository {
	return p.runs
}

func (p *Persistence) ScheduleRepository() persistence.ScheduleRepository {
	return p.schedules
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) write(kind, id string, value any) error {
	dir := filepath.Join(p.root, kind)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}

	err = os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
	}

	return nil
}

// read loads one document; notFound is returned untouched when the file does
// not exist.
func (p *Persistence) read(kind, id string, value any, notFound error) error {
	data, err := os.ReadFile(filepath.Join(p.root, kind, id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound
		}

		return fmt.Errorf("failed to read %s %s: %w", kind, id, err)
	}

	err = json.Unmarshal(data, value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", kind, id, err)
	}

	return nil
}

// readAll decodes every document of a kind through decode, skipping nothing.
func readAll[T any](p *Persistence, kind string) ([]*T, error) {
	dir := filepath.Join(p.root, kind)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}

	items := make([]*T, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		item := new(T)

		err = json.Unmarshal(data, item)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", entry.Name(), err)
		}

		items = append(items, item)
	}

	return items, nil
}

func (p *Persistence) remove(kind, id string) error {
	err := os.Remove(filepath.Join(p.root, kind, id+".json"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}

	return nil
}
