package evaluator

import (
	"math/rand"
	"time"

	"github.com/example/studyengine/pkg/models"
)

// Presentation is the view handed to the learner for one showing of a card.
// Display orders are freshly randomized per call and never stored; the
// canonical order in the card definition stays authoritative for evaluation.
type Presentation struct {
	CardID   string   `json:"card_id"`
	Question string   `json:"question"`
	Hint     string   `json:"hint,omitempty"`
	// Options is the shuffled option list for multiple_choice cards.
	Options []string `json:"options,omitempty"`
	// Items is the shuffled item list for ordered cards.
	Items []string `json:"items,omitempty"`
	// Left keeps the authored order; Right is shuffled (matching cards).
	Left  []string `json:"left,omitempty"`
	Right []string `json:"right,omitempty"`
	// Pool is the shuffled item pool and Categories the category names, for
	// categorization cards.
	Pool       []string `json:"pool,omitempty"`
	Categories []string `json:"categories,omitempty"`
	// Regions lists the occluded region ids for image cards.
	Regions []string `json:"regions,omitempty"`
}

// Present builds a presentation of the card. rng may be nil, in which case a
// time-seeded source is used; tests pass a fixed seed.
func Present(card *models.Card, rng *rand.Rand) Presentation {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	p := Presentation{CardID: card.ID, Question: card.Question, Hint: card.Hint}

	switch card.Type {
	case models.CardTypeMultipleChoice:
		p.Options = shuffled(card.Choice.Options, rng)
	case models.CardTypeOrdered:
		p.Items = shuffled(card.Ordered.Items, rng)
	case models.CardTypeMatching:
		p.Left = make([]string, len(card.Matching.Pairs))
		right := make([]string, len(card.Matching.Pairs))
		for i, pair := range card.Matching.Pairs {
			p.Left[i] = pair.Left
			right[i] = pair.Right
		}
		p.Right = shuffled(right, rng)
	case models.CardTypeCategorization:
		var pool []string
		for name, items := range card.Categorization.Categories {
			p.Categories = append(p.Categories, name)
			pool = append(pool, items...)
		}
		// Map iteration order is already unspecified, but the learner-facing
		// pool still gets an explicit uniform shuffle.
		p.Categories = shuffled(p.Categories, rng)
		p.Pool = shuffled(pool, rng)
	case models.CardTypeImage:
		for _, r := range card.Image.Regions {
			p.Regions = append(p.Regions, r.ID)
		}
	}
	return p
}

// shuffled returns a Fisher-Yates shuffled copy, leaving the input intact.
func shuffled(items []string, rng *rand.Rand) []string {
	out := make([]string, len(items))
	copy(out, items)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
