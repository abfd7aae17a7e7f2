package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/studyengine/pkg/models"
)

// UserSettingsRepository stores per-user preferences. The only setting the
// engine reads is the frequency mode, consumed at schedule time.
type UserSettingsRepository struct {
	db *sqlx.DB
}

// NewUserSettingsRepository creates a new repository instance.
func NewUserSettingsRepository(db *sqlx.DB) *UserSettingsRepository {
	return &UserSettingsRepository{db: db}
}

// GetFrequencyMode returns the user's pace preference, defaulting to normal
// for users who never saved one.
func (r *UserSettingsRepository) GetFrequencyMode(ctx context.Context, userID string) (models.FrequencyMode, error) {
	var stored string
	query := r.db.Rebind(`SELECT frequency_mode FROM user_settings WHERE user_id = ?`)
	err := r.db.GetContext(ctx, &stored, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FrequencyNormal, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get frequency mode: %w", err)
	}
	mode, err := models.ParseFrequencyMode(stored)
	if err != nil {
		// A bad stored value must not wedge scheduling; fall back to normal.
		return models.FrequencyNormal, nil
	}
	return mode, nil
}

// SetFrequencyMode upserts the user's pace preference.
func (r *UserSettingsRepository) SetFrequencyMode(ctx context.Context, userID string, mode models.FrequencyMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("unknown frequency mode %q", mode)
	}
	now := time.Now().UTC()
	update := r.db.Rebind(`UPDATE user_settings SET frequency_mode = ?, updated_at = ? WHERE user_id = ?`)
	result, err := r.db.ExecContext(ctx, update, string(mode), now, userID)
	if err != nil {
		return fmt.Errorf("failed to update frequency mode: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	insert := r.db.Rebind(`INSERT INTO user_settings (user_id, frequency_mode, updated_at) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, insert, userID, string(mode), now); err != nil {
		return fmt.Errorf("failed to insert frequency mode: %w", err)
	}
	return nil
}
