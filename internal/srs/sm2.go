// Package srs implements the review scheduling core: an SM-2 variant with a
// per-user frequency modulator, a skip path, and the due-set selector.
package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/example/studyengine/pkg/models"
)

// Quality is the learner's 1-4 self-assessment of a recall.
type Quality int

const (
	Again Quality = iota + 1 // recall failed
	Hard                     // recalled poorly
	Good                     // recalled with effort
	Easy                     // recalled effortlessly
)

// passThreshold separates failed (Again/Hard) from successful (Good/Easy)
// recalls. There is no "perfect" tier distinct from Easy.
const passThreshold = Good

// IsValid reports whether q is within the 1-4 scale.
func (q Quality) IsValid() bool {
	return q >= Again && q <= Easy
}

func (q Quality) String() string {
	switch q {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// Passed reports whether the recall counts as successful.
func (q Quality) Passed() bool {
	return q >= passThreshold
}

const (
	minEase = 1.3
	maxEase = 2.5

	easePenalty = 0.2 // subtracted on a failed recall
	easeStep    = 0.1 // added per quality point above Good

	firstInterval = 6 // days after the first successful recall

	// SkipDelay is how far a skipped card is pushed: come back soon, not
	// tomorrow. Skipping is not a quality rating and is never scored.
	SkipDelay = time.Hour
)

// Schedule applies one review to the state and returns the updated copy. It
// is pure: identical inputs always produce identical outputs, and the input
// state is not mutated.
func Schedule(state models.ReviewState, quality Quality, mode models.FrequencyMode, now time.Time) (models.ReviewState, error) {
	if !quality.IsValid() {
		return models.ReviewState{}, fmt.Errorf("invalid quality %d: must be 1-4", int(quality))
	}

	next := state
	if quality.Passed() {
		if state.Repetitions == 0 {
			next.IntervalDays = firstInterval
		} else {
			next.IntervalDays = int(math.Round(float64(state.IntervalDays) * state.EaseFactor))
		}
		next.EaseFactor = math.Min(maxEase, state.EaseFactor+float64(quality-Good)*easeStep)
		next.Repetitions = state.Repetitions + 1
		next.TimesCorrect = state.TimesCorrect + 1
	} else {
		next.IntervalDays = 1
		next.EaseFactor = math.Max(minEase, state.EaseFactor-easePenalty)
		next.Repetitions = 0
	}

	// The pace modulator is applied once, after the base step; it never
	// compounds across reviews because each review starts from the stored
	// unscaled fields only through the next computed interval.
	next.IntervalDays = modulate(next.IntervalDays, mode)

	reviewedAt := now
	next.LastReviewedAt = &reviewedAt
	next.NextReviewAt = now.AddDate(0, 0, next.IntervalDays)
	next.TimesReviewed = state.TimesReviewed + 1
	next.UpdatedAt = now
	return next, nil
}

// Skip pushes the card back by SkipDelay without touching any scheduling or
// accuracy field.
func Skip(state models.ReviewState, now time.Time) models.ReviewState {
	next := state
	next.NextReviewAt = now.Add(SkipDelay)
	next.UpdatedAt = now
	return next
}

// modulate scales an interval by the user's pace preference. Intensive halves
// it (floor one day), relaxed stretches it by half (rounded up).
func modulate(days int, mode models.FrequencyMode) int {
	switch mode {
	case models.FrequencyIntensive:
		scaled := int(math.Round(float64(days) * 0.5))
		if scaled < 1 {
			scaled = 1
		}
		return scaled
	case models.FrequencyRelaxed:
		return int(math.Ceil(float64(days) * 1.5))
	default:
		return days
	}
}
