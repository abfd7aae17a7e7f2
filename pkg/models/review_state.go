package models

import "time"

// Review status buckets, derived from the repetition count.
type ReviewStatus string

const (
	StatusNew      ReviewStatus = "new"
	StatusLearning ReviewStatus = "learning"
	StatusMastered ReviewStatus = "mastered"
)

// masteredThreshold is the repetition count at which a card counts as mastered.
const masteredThreshold = 5

// ReviewState tracks one user's memory of one card. It is created on first
// exposure, mutated only through the scheduler, and never deleted while the
// card exists. Version backs the optimistic write check: an update only
// commits if the stored version still matches.
type ReviewState struct {
	ID             string     `json:"id" db:"id"`
	UserID         string     `json:"user_id" db:"user_id"`
	CardID         string     `json:"card_id" db:"card_id"`
	IntervalDays   int        `json:"interval_days" db:"interval_days"`
	EaseFactor     float64    `json:"ease_factor" db:"ease_factor"`
	Repetitions    int        `json:"repetitions" db:"repetitions"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty" db:"last_reviewed_at"`
	NextReviewAt   time.Time  `json:"next_review_at" db:"next_review_at"`
	TimesReviewed  int        `json:"times_reviewed" db:"times_reviewed"`
	TimesCorrect   int        `json:"times_correct" db:"times_correct"`
	Version        int        `json:"-" db:"version"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// DefaultEaseFactor is the starting ease for a card never reviewed before.
const DefaultEaseFactor = 2.5

// NewReviewState returns the initial state for a (user, card) pair: due
// immediately, default ease, zero repetitions.
func NewReviewState(userID, cardID string, now time.Time) ReviewState {
	return ReviewState{
		UserID:       userID,
		CardID:       cardID,
		EaseFactor:   DefaultEaseFactor,
		NextReviewAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Status derives the review bucket from the repetition count.
func (s *ReviewState) Status() ReviewStatus {
	switch {
	case s.Repetitions == 0:
		return StatusNew
	case s.Repetitions < masteredThreshold:
		return StatusLearning
	default:
		return StatusMastered
	}
}

// Due reports whether the card is due for review at the given time.
func (s *ReviewState) Due(now time.Time) bool {
	return !s.NextReviewAt.After(now)
}

// Accuracy returns the lifetime correct-answer ratio, or 0 before any review.
func (s *ReviewState) Accuracy() float64 {
	if s.TimesReviewed == 0 {
		return 0
	}
	return float64(s.TimesCorrect) / float64(s.TimesReviewed)
}

// StudyEntry joins a card with the requesting user's review state; the
// due-set selector works on these.
type StudyEntry struct {
	Card  Card        `json:"card"`
	State ReviewState `json:"state"`
}
