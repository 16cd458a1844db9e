package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bitvale/narrator/internal/models"
	"github.com/google/uuid"
)

// CreatePreset inserts a new preset. Preset names are unique; inserting an
// existing name updates the stored settings instead.
func (db *DB) CreatePreset(ctx context.Context, p *models.Preset) error {
	query := `
		INSERT INTO presets (id, name, settings)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET settings = EXCLUDED.settings, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	return db.QueryRowContext(ctx, query, p.ID, p.Name, p.Settings).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (db *DB) GetPreset(ctx context.Context, id uuid.UUID) (*models.Preset, error) {
	query := `
		SELECT id, name, settings, created_at, updated_at
		FROM presets
		WHERE id = $1
	`

	p := &models.Preset{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Settings, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("preset not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preset: %w", err)
	}

	return p, nil
}

// ListPresets returns all presets ordered by name.
func (db *DB) ListPresets(ctx context.Context) ([]models.Preset, error) {
	query := `
		SELECT id, name, settings, created_at, updated_at
		FROM presets
		ORDER BY name
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	defer rows.Close()

	var presets []models.Preset
	for rows.Next() {
		var p models.Preset
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Settings, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan preset: %w", err)
		}
		presets = append(presets, p)
	}

	return presets, nil
}

func (db *DB) DeletePreset(ctx context.Context, id uuid.UUID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM presets WHERE id = $1`, id)
	return err
}
