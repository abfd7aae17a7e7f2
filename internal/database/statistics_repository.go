package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/studyengine/pkg/models"
)

// StatisticsRepository records study-session summaries and computes per-course
// aggregates. Counters only ever grow; the aggregates are derived reads.
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance.
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// CreateSession stores one session summary.
func (r *StatisticsRepository) CreateSession(ctx context.Context, session *models.StudySession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO study_sessions (id, user_id, course_id, total_answered, total_correct, duration_seconds, started_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if _, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.CourseID,
		session.TotalAnswered, session.TotalCorrect,
		session.DurationSeconds, session.StartedAt, session.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create study session: %w", err)
	}
	return nil
}

// GetSessions returns the user's session history, newest first.
func (r *StatisticsRepository) GetSessions(ctx context.Context, userID string, limit int) ([]models.StudySession, error) {
	query := `SELECT * FROM study_sessions WHERE user_id = ? ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var sessions []models.StudySession
	if err := r.db.SelectContext(ctx, &sessions, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get study sessions: %w", err)
	}
	return sessions, nil
}

// GetCourseStats aggregates the user's standing in one course: card counts by
// review status plus lifetime accuracy. Cards the user has never opened count
// as new.
func (r *StatisticsRepository) GetCourseStats(ctx context.Context, userID, courseID string) (*models.CourseStats, error) {
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total_cards,
			COALESCE(SUM(CASE WHEN COALESCE(s.repetitions, 0) = 0 THEN 1 ELSE 0 END), 0) AS new_cards,
			COALESCE(SUM(CASE WHEN COALESCE(s.repetitions, 0) BETWEEN 1 AND 4 THEN 1 ELSE 0 END), 0) AS learning_cards,
			COALESCE(SUM(CASE WHEN COALESCE(s.repetitions, 0) >= 5 THEN 1 ELSE 0 END), 0) AS mastered_cards,
			COALESCE(SUM(s.times_reviewed), 0) AS times_reviewed,
			COALESCE(SUM(s.times_correct), 0) AS times_correct
		FROM cards c
		LEFT JOIN review_states s ON s.card_id = c.id AND s.user_id = ?
		WHERE c.course_id = ?
	`)
	var stats models.CourseStats
	if err := r.db.GetContext(ctx, &stats, query, userID, courseID); err != nil {
		return nil, fmt.Errorf("failed to get course stats: %w", err)
	}
	stats.CourseID = courseID
	if stats.TimesReviewed > 0 {
		stats.Accuracy = float64(stats.TimesCorrect) / float64(stats.TimesReviewed)
	}
	return &stats, nil
}
