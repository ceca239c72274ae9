package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

// MacroRepository handles macro storage.
type MacroRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const macroColumns = `
	id
  , org_id
  , module_id
  , name
  , actions
  , allowed_roles
  , created_at
  , updated_at
`

func (r *MacroRepository) GetByID(ctx context.Context, orgID, id string) (*models.Macro, error) {
	query := `SELECT ` + macroColumns + ` FROM macros WHERE id = $1 AND org_id = $2`

	macro, err := scanMacro(r.db.QueryRowContext(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "macro", id, persistence.ErrMacroNotFound)
		}

		return nil, fmt.Errorf("failed to scan macro: %w", err)
	}

	return macro, nil
}

func (r *MacroRepository) List(ctx context.Context, orgID string) ([]*models.Macro, error) {
	query := `SELECT ` + macroColumns + `
		FROM macros
		WHERE org_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query macros: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	macros := make([]*models.Macro, 0)

	for rows.Next() {
		macro, err := scanMacro(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan macro: %w", err)
		}

		macros = append(macros, macro)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating macros: %w", err)
	}

	return macros, nil
}

func (r *MacroRepository) Save(ctx context.Context, macro *models.Macro) error {
	macro.UpdatedAt = time.Now().UTC()

	if macro.CreatedAt.IsZero() {
		macro.CreatedAt = macro.UpdatedAt
	}

	actions, err := json.Marshal(macro.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal macro actions: %w", err)
	}

	allowedRoles, err := json.Marshal(macro.AllowedRoles)
	if err != nil {
		return fmt.Errorf("failed to marshal allowed roles: %w", err)
	}

	query := `
		INSERT INTO macros
			(id, org_id, module_id, name, actions, allowed_roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			actions = EXCLUDED.actions,
			allowed_roles = EXCLUDED.allowed_roles,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		macro.ID, macro.OrgID, macro.ModuleID, macro.Name,
		actions, allowedRoles, macro.CreatedAt, macro.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save macro: %w", err)
	}

	return nil
}

func (r *MacroRepository) Delete(ctx context.Context, orgID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM macros WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete macro: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Delete", "macro", id, persistence.ErrMacroNotFound)
	}

	return nil
}

func scanMacro(row rowScanner) (*models.Macro, error) {
	macro := &models.Macro{}

	var actions, allowedRoles []byte

	err := row.Scan(&macro.ID, &macro.OrgID, &macro.ModuleID, &macro.Name,
		&actions, &allowedRoles, &macro.CreatedAt, &macro.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(actions, &macro.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal macro actions: %w", err)
	}

	err = json.Unmarshal(allowedRoles, &macro.AllowedRoles)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal allowed roles: %w", err)
	}

	return macro, nil
}
