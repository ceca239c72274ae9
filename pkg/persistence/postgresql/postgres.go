// Package postgresql provides the PostgreSQL persistence implementation.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	blueprints *BlueprintRepository
	records    *RecordRepository
	rules      *RuleRepository
	approvals  *ApprovalRepository
	workflows  *WorkflowRepository
	macros     *MacroRepository
	runs       *RunRepository
	schedules  *ScheduleRepository
}

// NewPersistence connects, runs migrations, and wires the repositories.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:         database,
		logger:     logger,
		blueprints: &BlueprintRepository{db: database, logger: logger},
		records:    &RecordRepository{db: database, logger: logger},
		rules:      &RuleRepository{db: database, logger: logger},
		approvals:  &ApprovalRepository{db: database, logger: logger},
		workflows:  &WorkflowRepository{db: database, logger: logger},
		macros:     &MacroRepository{db: database, logger: logger},
		runs:       &RunRepository{db: database, logger: logger},
		schedules:  &ScheduleRepository{db: database, logger: logger},
	}, nil
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

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
