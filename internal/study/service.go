// Package study orchestrates the engine: it joins the evaluator, the
// scheduler, and the persistence boundary into the operations the transport
// layer exposes.
package study

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/example/studyengine/internal/database"
	"github.com/example/studyengine/internal/evaluator"
	"github.com/example/studyengine/internal/srs"
	"github.com/example/studyengine/pkg/models"
)

// Service owns the review workflow for all users. Review states are only
// ever written here, through the repository's optimistic check; reads for the
// due queue stay unsynchronized and stale-tolerant.
type Service struct {
	cards    *database.CardRepository
	states   *database.ReviewStateRepository
	settings *database.UserSettingsRepository
	stats    *database.StatisticsRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the repositories into a service.
func NewService(
	cards *database.CardRepository,
	states *database.ReviewStateRepository,
	settings *database.UserSettingsRepository,
	stats *database.StatisticsRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		cards:    cards,
		states:   states,
		settings: settings,
		stats:    stats,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitReview applies one quality rating to the user's state for a card and
// persists the result. On a write race it retries once with fresh state; a
// second loss is surfaced as ErrConcurrentModification for the client to
// retry. A rating that never commits leaves the prior state unchanged.
func (s *Service) SubmitReview(ctx context.Context, userID, cardID string, quality srs.Quality, responseTimeMs int) (*models.ReviewState, error) {
	if _, err := s.cards.GetByID(ctx, cardID); err != nil {
		return nil, err
	}
	mode, err := s.settings.GetFrequencyMode(ctx, userID)
	if err != nil {
		return nil, err
	}

	const attempts = 2
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		state, err := s.states.GetOrCreate(ctx, userID, cardID)
		if err != nil {
			return nil, err
		}
		next, err := srs.Schedule(*state, quality, mode, s.now())
		if err != nil {
			return nil, err
		}
		next.ID = state.ID
		next.Version = state.Version
		if err := s.states.Update(ctx, &next); err != nil {
			if errors.Is(err, models.ErrConcurrentModification) {
				lastErr = err
				continue
			}
			return nil, err
		}
		s.logger.Debug("review scheduled",
			zap.String("user_id", userID),
			zap.String("card_id", cardID),
			zap.Stringer("quality", quality),
			zap.Int("interval_days", next.IntervalDays),
			zap.Int("response_time_ms", responseTimeMs),
		)
		return &next, nil
	}
	return nil, lastErr
}

// SkipCard pushes the card back an hour without scoring it.
func (s *Service) SkipCard(ctx context.Context, userID, cardID string) (*models.ReviewState, error) {
	if _, err := s.cards.GetByID(ctx, cardID); err != nil {
		return nil, err
	}
	state, err := s.states.GetOrCreate(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	next := srs.Skip(*state, s.now())
	if err := s.states.Update(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// DueCards builds the user's study queue. courseID narrows to one course;
// opts carry the selector filters. An empty queue is a normal outcome.
func (s *Service) DueCards(ctx context.Context, userID, courseID string, opts srs.DueOptions) ([]models.StudyEntry, error) {
	entries, cardErrs, err := s.states.ListStudyEntries(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	for _, cardErr := range cardErrs {
		// One broken card must not take the queue down, but it is not
		// swallowed either.
		s.logger.Warn("skipping card with invalid stored payload", zap.Error(cardErr))
	}
	return srs.SelectDue(entries, opts, s.now()), nil
}

// Evaluate judges a raw response against the card.
func (s *Service) Evaluate(ctx context.Context, cardID string, response json.RawMessage) (evaluator.Verdict, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return evaluator.Verdict{}, err
	}
	return evaluator.Evaluate(card, response)
}

// Presentation returns a freshly shuffled display of the card.
func (s *Service) Presentation(ctx context.Context, cardID string, rng *rand.Rand) (evaluator.Presentation, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return evaluator.Presentation{}, err
	}
	return evaluator.Present(card, rng), nil
}

// FrequencyMode reads the user's pace preference.
func (s *Service) FrequencyMode(ctx context.Context, userID string) (models.FrequencyMode, error) {
	return s.settings.GetFrequencyMode(ctx, userID)
}

// SetFrequencyMode stores the user's pace preference. It affects only
// subsequently computed intervals; stored schedules are never rewritten.
func (s *Service) SetFrequencyMode(ctx context.Context, userID string, mode models.FrequencyMode) error {
	return s.settings.SetFrequencyMode(ctx, userID, mode)
}

// RecordSession persists a finished session tally.
func (s *Service) RecordSession(ctx context.Context, userID, courseID string, tally Tally, startedAt time.Time, duration time.Duration) (*models.StudySession, error) {
	if tally.Total == 0 {
		return nil, fmt.Errorf("refusing to record an empty session")
	}
	session := &models.StudySession{
		UserID:          userID,
		CourseID:        courseID,
		TotalAnswered:   tally.Total,
		TotalCorrect:    tally.Correct,
		DurationSeconds: int(duration.Seconds()),
		StartedAt:       startedAt,
	}
	if err := s.stats.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Sessions returns the user's session history, newest first; limit 0 means
// all of it.
func (s *Service) Sessions(ctx context.Context, userID string, limit int) ([]models.StudySession, error) {
	return s.stats.GetSessions(ctx, userID, limit)
}

// CourseStats aggregates the user's standing in a course.
func (s *Service) CourseStats(ctx context.Context, userID, courseID string) (*models.CourseStats, error) {
	return s.stats.GetCourseStats(ctx, userID, courseID)
}
