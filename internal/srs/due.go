package srs

import (
	"math/rand"
	"sort"
	"time"

	"github.com/example/studyengine/pkg/models"
)

// difficultEaseCeiling marks a card as difficult when its ease sits below it.
const difficultEaseCeiling = 2.3

// recentWindow bounds the recently-learned filter.
const recentWindow = 7 * 24 * time.Hour

// DueOptions control the due-set selector. Filters compose with logical AND.
type DueOptions struct {
	// PracticeAll ignores the due predicate and considers every card.
	PracticeAll bool
	// DifficultOnly keeps cards whose ease factor is below 2.3.
	DifficultOnly bool
	// RecentlyLearned keeps cards reviewed within the past 7 days.
	RecentlyLearned bool
	// Shuffle randomizes the final order, overriding the due-date ordering.
	Shuffle bool
	// Limit truncates the result when positive.
	Limit int
	// Rand seeds the shuffle; nil uses a time-seeded source.
	Rand *rand.Rand
}

// SelectDue filters and orders study entries into the queue handed to the
// client. An empty result is the normal "nothing due" terminal state, not an
// error.
func SelectDue(entries []models.StudyEntry, opts DueOptions, now time.Time) []models.StudyEntry {
	selected := make([]models.StudyEntry, 0, len(entries))
	for _, e := range entries {
		if !opts.PracticeAll && !e.State.Due(now) {
			continue
		}
		if opts.DifficultOnly && e.State.EaseFactor >= difficultEaseCeiling {
			continue
		}
		if opts.RecentlyLearned {
			last := e.State.LastReviewedAt
			if last == nil || now.Sub(*last) > recentWindow {
				continue
			}
		}
		selected = append(selected, e)
	}

	if opts.Shuffle {
		rng := opts.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		rng.Shuffle(len(selected), func(i, j int) {
			selected[i], selected[j] = selected[j], selected[i]
		})
	} else {
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].State.NextReviewAt.Before(selected[j].State.NextReviewAt)
		})
	}

	if opts.Limit > 0 && len(selected) > opts.Limit {
		selected = selected[:opts.Limit]
	}
	return selected
}
