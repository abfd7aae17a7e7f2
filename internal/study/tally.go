package study

import "github.com/example/studyengine/pkg/models"

// Tally aggregates a run of evaluations into summary statistics.
type Tally struct {
	Total   int                     `json:"total"`
	Correct int                     `json:"correct"`
	ByType  map[models.CardType]int `json:"by_type,omitempty"`
}

// Add records one evaluated answer.
func (t *Tally) Add(cardType models.CardType, correct bool) {
	t.Total++
	if correct {
		t.Correct++
	}
	if t.ByType == nil {
		t.ByType = make(map[models.CardType]int)
	}
	t.ByType[cardType]++
}

// Accuracy returns the correct-answer ratio, or 0 for an empty tally.
func (t *Tally) Accuracy() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Total)
}
