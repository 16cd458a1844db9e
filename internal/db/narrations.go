package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bitvale/narrator/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateNarration(ctx context.Context, n *models.Narration) error {
	query := `
		INSERT INTO narrations (
			id, prompt, mode, character, speaker, llm_model,
			sd_checkpoint, sd_vae, sd_style, negative_prompt, lora_syntax, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		n.ID, n.Prompt, n.Mode, n.Character, n.Speaker, n.LLMModel,
		n.SDCheckpoint, n.SDVAE, n.SDStyle, n.NegativePrompt, n.LoraSyntax, n.Status,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (db *DB) GetNarration(ctx context.Context, id uuid.UUID) (*models.Narration, error) {
	query := `
		SELECT
			id, prompt, mode, character, speaker, llm_model,
			sd_checkpoint, sd_vae, sd_style, negative_prompt, lora_syntax,
			status, basename, audio_duration_ms, has_image, error_message,
			created_at, updated_at
		FROM narrations
		WHERE id = $1
	`

	n := &models.Narration{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.Prompt, &n.Mode, &n.Character, &n.Speaker, &n.LLMModel,
		&n.SDCheckpoint, &n.SDVAE, &n.SDStyle, &n.NegativePrompt, &n.LoraSyntax,
		&n.Status, &n.Basename, &n.AudioDurationMs, &n.HasImage, &n.ErrorMessage,
		&n.CreatedAt, &n.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("narration not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get narration: %w", err)
	}

	return n, nil
}

// ListNarrations returns narrations ordered by creation date (newest first).
// Supports optional status filter, limit, and offset for pagination.
func (db *DB) ListNarrations(ctx context.Context, status string, limit, offset int) ([]models.Narration, error) {
	query := `
		SELECT
			id, prompt, mode, character, speaker, llm_model,
			sd_checkpoint, sd_vae, sd_style, negative_prompt, lora_syntax,
			status, basename, audio_duration_ms, has_image, error_message,
			created_at, updated_at
		FROM narrations
	`

	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query narrations: %w", err)
	}
	defer rows.Close()

	var narrations []models.Narration
	for rows.Next() {
		var n models.Narration
		err := rows.Scan(
			&n.ID, &n.Prompt, &n.Mode, &n.Character, &n.Speaker, &n.LLMModel,
			&n.SDCheckpoint, &n.SDVAE, &n.SDStyle, &n.NegativePrompt, &n.LoraSyntax,
			&n.Status, &n.Basename, &n.AudioDurationMs, &n.HasImage, &n.ErrorMessage,
			&n.CreatedAt, &n.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan narration: %w", err)
		}
		narrations = append(narrations, n)
	}

	return narrations, nil
}

func (db *DB) CountNarrations(ctx context.Context, status string) (int, error) {
	query := `SELECT COUNT(*) FROM narrations`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count narrations: %w", err)
	}
	return count, nil
}

func (db *DB) UpdateNarrationStatus(ctx context.Context, id uuid.UUID, status models.NarrationStatus) error {
	query := `UPDATE narrations SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

// SetNarrationBasename records the library basename once the text file is written.
func (db *DB) SetNarrationBasename(ctx context.Context, id uuid.UUID, basename string) error {
	query := `UPDATE narrations SET basename = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, basename, id)
	return err
}

func (db *DB) SetNarrationAudio(ctx context.Context, id uuid.UUID, durationMs int) error {
	query := `UPDATE narrations SET audio_duration_ms = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, durationMs, id)
	return err
}

func (db *DB) SetNarrationImage(ctx context.Context, id uuid.UUID, hasImage bool) error {
	query := `UPDATE narrations SET has_image = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, hasImage, id)
	return err
}

func (db *DB) UpdateNarrationError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE narrations
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, models.NarrationStatusFailed, errorMessage, id)
	return err
}

func (db *DB) DeleteNarration(ctx context.Context, id uuid.UUID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM narrations WHERE id = $1`, id)
	return err
}
