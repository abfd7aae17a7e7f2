package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/studyengine/pkg/models"
)

// ReviewStateRepository handles database operations for per-(user, card)
// review states. Writes go through an optimistic version check so two racing
// scheduling calls cannot silently lose one update.
type ReviewStateRepository struct {
	db *sqlx.DB
}

// NewReviewStateRepository creates a new repository instance.
func NewReviewStateRepository(db *sqlx.DB) *ReviewStateRepository {
	return &ReviewStateRepository{db: db}
}

// GetOrCreate returns the state for (user, card), inserting the initial one
// on first exposure.
func (r *ReviewStateRepository) GetOrCreate(ctx context.Context, userID, cardID string) (*models.ReviewState, error) {
	state, err := r.Get(ctx, userID, cardID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	fresh := models.NewReviewState(userID, cardID, time.Now().UTC())
	fresh.ID = uuid.NewString()
	query := r.db.Rebind(`
		INSERT INTO review_states (
			id, user_id, card_id, interval_days, ease_factor, repetitions,
			last_reviewed_at, next_review_at, times_reviewed, times_correct,
			version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if _, err := r.db.ExecContext(ctx, query,
		fresh.ID, fresh.UserID, fresh.CardID, fresh.IntervalDays, fresh.EaseFactor,
		fresh.Repetitions, fresh.LastReviewedAt, fresh.NextReviewAt,
		fresh.TimesReviewed, fresh.TimesCorrect, fresh.Version,
		fresh.CreatedAt, fresh.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create review state: %w", err)
	}
	return &fresh, nil
}

// Get returns the state for (user, card) or ErrNotFound.
func (r *ReviewStateRepository) Get(ctx context.Context, userID, cardID string) (*models.ReviewState, error) {
	var state models.ReviewState
	query := r.db.Rebind(`SELECT * FROM review_states WHERE user_id = ? AND card_id = ?`)
	if err := r.db.GetContext(ctx, &state, query, userID, cardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: review state for user %s card %s", models.ErrNotFound, userID, cardID)
		}
		return nil, fmt.Errorf("failed to get review state: %w", err)
	}
	return &state, nil
}

// Update persists a scheduled state. The write only commits when the stored
// version still equals state.Version; otherwise another scheduling call won
// the race and the caller gets ErrConcurrentModification to retry with fresh
// state. A rejected update leaves the stored row untouched.
func (r *ReviewStateRepository) Update(ctx context.Context, state *models.ReviewState) error {
	query := r.db.Rebind(`
		UPDATE review_states SET
			interval_days = ?,
			ease_factor = ?,
			repetitions = ?,
			last_reviewed_at = ?,
			next_review_at = ?,
			times_reviewed = ?,
			times_correct = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`)
	result, err := r.db.ExecContext(ctx, query,
		state.IntervalDays, state.EaseFactor, state.Repetitions,
		state.LastReviewedAt, state.NextReviewAt,
		state.TimesReviewed, state.TimesCorrect,
		time.Now().UTC(),
		state.ID, state.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update review state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: review state %s at version %d", models.ErrConcurrentModification, state.ID, state.Version)
	}
	state.Version++
	return nil
}

// studyRow is the join of a review state with its card.
type studyRow struct {
	cardRow
	StateID        string     `db:"state_id"`
	UserID         string     `db:"user_id"`
	IntervalDays   int        `db:"interval_days"`
	EaseFactor     float64    `db:"ease_factor"`
	Repetitions    int        `db:"repetitions"`
	LastReviewedAt *time.Time `db:"last_reviewed_at"`
	NextReviewAt   time.Time  `db:"next_review_at"`
	TimesReviewed  int        `db:"times_reviewed"`
	TimesCorrect   int        `db:"times_correct"`
	Version        int        `db:"version"`
	StateCreatedAt time.Time  `db:"state_created_at"`
	StateUpdatedAt time.Time  `db:"state_updated_at"`
}

// ListStudyEntries returns every (card, state) pair for the user, optionally
// narrowed to one course, including cards the user has never seen (those get
// an unsaved initial state). Card rows whose stored payload no longer decodes
// are reported in the second return value and skipped; one bad card must not
// take the rest of the queue down.
func (r *ReviewStateRepository) ListStudyEntries(ctx context.Context, userID, courseID string) ([]models.StudyEntry, []error, error) {
	query := `
		SELECT c.*,
			COALESCE(s.id, '') AS state_id,
			COALESCE(s.user_id, '') AS user_id,
			COALESCE(s.interval_days, 0) AS interval_days,
			COALESCE(s.ease_factor, 2.5) AS ease_factor,
			COALESCE(s.repetitions, 0) AS repetitions,
			s.last_reviewed_at AS last_reviewed_at,
			COALESCE(s.next_review_at, c.created_at) AS next_review_at,
			COALESCE(s.times_reviewed, 0) AS times_reviewed,
			COALESCE(s.times_correct, 0) AS times_correct,
			COALESCE(s.version, 0) AS version,
			COALESCE(s.created_at, c.created_at) AS state_created_at,
			COALESCE(s.updated_at, c.created_at) AS state_updated_at
		FROM cards c
		LEFT JOIN review_states s ON s.card_id = c.id AND s.user_id = ?
	`
	args := []any{userID}
	if courseID != "" {
		query += ` WHERE c.course_id = ?`
		args = append(args, courseID)
	}
	query += ` ORDER BY next_review_at ASC`

	var rows []studyRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, nil, fmt.Errorf("failed to list study entries: %w", err)
	}

	entries := make([]models.StudyEntry, 0, len(rows))
	var cardErrs []error
	for i := range rows {
		card, err := rows[i].cardRow.toModel()
		if err != nil {
			cardErrs = append(cardErrs, err)
			continue
		}
		entries = append(entries, models.StudyEntry{
			Card: *card,
			State: models.ReviewState{
				ID:             rows[i].StateID,
				UserID:         userID,
				CardID:         card.ID,
				IntervalDays:   rows[i].IntervalDays,
				EaseFactor:     rows[i].EaseFactor,
				Repetitions:    rows[i].Repetitions,
				LastReviewedAt: rows[i].LastReviewedAt,
				NextReviewAt:   rows[i].NextReviewAt,
				TimesReviewed:  rows[i].TimesReviewed,
				TimesCorrect:   rows[i].TimesCorrect,
				Version:        rows[i].Version,
				CreatedAt:      rows[i].StateCreatedAt,
				UpdatedAt:      rows[i].StateUpdatedAt,
			},
		})
	}
	return entries, cardErrs, nil
}

// UserDueCount pairs a user with their number of due cards; the reminder job
// consumes these.
type UserDueCount struct {
	UserID string `db:"user_id"`
	Due    int    `db:"due"`
}

// CountDueByUser returns, for every user with at least one due card, how many
// cards are due at the given time.
func (r *ReviewStateRepository) CountDueByUser(ctx context.Context, now time.Time) ([]UserDueCount, error) {
	var counts []UserDueCount
	query := r.db.Rebind(`
		SELECT user_id, COUNT(*) AS due
		FROM review_states
		WHERE next_review_at <= ?
		GROUP BY user_id
		ORDER BY user_id
	`)
	if err := r.db.SelectContext(ctx, &counts, query, now); err != nil {
		return nil, fmt.Errorf("failed to count due cards: %w", err)
	}
	return counts, nil
}
