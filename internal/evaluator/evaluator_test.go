package evaluator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studyengine/pkg/models"
)

func basicCard(answer string) *models.Card {
	return &models.Card{
		ID:       "card-basic",
		Type:     models.CardTypeBasic,
		Question: "Capital of France?",
		Text:     &models.TextPayload{Answer: answer},
	}
}

func choiceCard() *models.Card {
	return &models.Card{
		ID:       "card-choice",
		Type:     models.CardTypeMultipleChoice,
		Question: "Which is a prime?",
		Choice: &models.ChoicePayload{
			Options:       []string{"4", "7", "9"},
			CorrectAnswer: "7",
		},
	}
}

func multiChoiceCard() *models.Card {
	return &models.Card{
		ID:       "card-multi",
		Type:     models.CardTypeMultipleChoice,
		Question: "Which are primes?",
		Choice: &models.ChoicePayload{
			Options:              []string{"2", "4", "7", "9"},
			AllowMultipleCorrect: true,
			CorrectAnswers:       []string{"2", "7"},
		},
	}
}

func TestEvaluateTextMatch(t *testing.T) {
	tests := []struct {
		name      string
		submitted string
		want      bool
	}{
		{"exact", "Paris", true},
		{"case insensitive", "PARIS", true},
		{"trimmed", "  paris \n", true},
		{"wrong", "Lyon", false},
		{"internal whitespace matters", "Pa ris", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := json.Marshal(TextAnswer{Text: tt.submitted})
			v, err := Evaluate(basicCard("Paris"), raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Correct)
			assert.Equal(t, "Paris", v.Expected)
		})
	}
}

func TestEvaluateClozeUsesTextRule(t *testing.T) {
	card := basicCard("mitochondria")
	card.Type = models.CardTypeCloze

	raw, _ := json.Marshal(TextAnswer{Text: " Mitochondria"})
	v, err := Evaluate(card, raw)
	require.NoError(t, err)
	assert.True(t, v.Correct)
}

func TestEvaluateSingleChoice(t *testing.T) {
	raw, _ := json.Marshal(ChoiceAnswer{Selected: []string{"7"}})
	v, err := Evaluate(choiceCard(), raw)
	require.NoError(t, err)
	assert.True(t, v.Correct)

	raw, _ = json.Marshal(ChoiceAnswer{Selected: []string{"9"}})
	v, err = Evaluate(choiceCard(), raw)
	require.NoError(t, err)
	assert.False(t, v.Correct)
	assert.Equal(t, "7", v.Expected)
}

func TestEvaluateSingleChoiceSelectionCount(t *testing.T) {
	for _, selected := range [][]string{nil, {}, {"7", "9"}} {
		raw, _ := json.Marshal(ChoiceAnswer{Selected: selected})
		_, err := Evaluate(choiceCard(), raw)
		assert.ErrorIs(t, err, models.ErrMalformedResponse, "selected %v", selected)
	}
}

func TestEvaluateMultiChoiceSetEquality(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
		correct  bool
		missing  []string
		extra    []string
	}{
		{"exact set", []string{"7", "2"}, true, nil, nil},
		{"subset gets no partial credit", []string{"2"}, false, []string{"7"}, nil},
		{"superset fails", []string{"2", "7", "9"}, false, nil, []string{"9"}},
		{"disjoint", []string{"4", "9"}, false, []string{"2", "7"}, []string{"4", "9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := json.Marshal(ChoiceAnswer{Selected: tt.selected})
			v, err := Evaluate(multiChoiceCard(), raw)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, v.Correct)
			assert.Equal(t, tt.missing, v.Missing)
			assert.Equal(t, tt.extra, v.Extra)
		})
	}
}

func TestEvaluateTrueFalse(t *testing.T) {
	card := &models.Card{
		Type:      models.CardTypeTrueFalse,
		Question:  "The sky is green.",
		TrueFalse: &models.TrueFalsePayload{CorrectAnswer: false},
	}

	v, err := Evaluate(card, json.RawMessage(`{"answer": false}`))
	require.NoError(t, err)
	assert.True(t, v.Correct)

	v, err = Evaluate(card, json.RawMessage(`{"answer": true}`))
	require.NoError(t, err)
	assert.False(t, v.Correct)

	_, err = Evaluate(card, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, models.ErrMalformedResponse)
}

func TestEvaluateMatching(t *testing.T) {
	card := &models.Card{
		Type:     models.CardTypeMatching,
		Question: "Match country to capital.",
		Matching: &models.MatchingPayload{Pairs: []models.MatchPair{
			{Left: "France", Right: "Paris"},
			{Left: "Japan", Right: "Tokyo"},
		}},
	}

	raw, _ := json.Marshal(MatchingAnswer{Matches: map[string]string{
		"France": "Paris", "Japan": "Tokyo",
	}})
	v, err := Evaluate(card, raw)
	require.NoError(t, err)
	assert.True(t, v.Correct)

	raw, _ = json.Marshal(MatchingAnswer{Matches: map[string]string{
		"France": "Tokyo", "Japan": "Paris",
	}})
	v, err = Evaluate(card, raw)
	require.NoError(t, err)
	assert.False(t, v.Correct)
	assert.Equal(t, map[string]string{"France": "Paris", "Japan": "Tokyo"}, v.Mismatches)
}

func TestEvaluateMatchingMissingPairFails(t *testing.T) {
	card := &models.Card{
		Type:     models.CardTypeMatching,
		Question: "Match.",
		Matching: &models.MatchingPayload{Pairs: []models.MatchPair{
			{Left: "a", Right: "1"},
			{Left: "b", Right: "2"},
		}},
	}

	raw, _ := json.Marshal(MatchingAnswer{Matches: map[string]string{"a": "1"}})
	v, err := Evaluate(card, raw)
	require.NoError(t, err)
	assert.False(t, v.Correct)
	assert.Equal(t, map[string]string{"b": "2"}, v.Mismatches)
}

func TestEvaluateCategorization(t *testing.T) {
	card := &models.Card{
		Type:     models.CardTypeCategorization,
		Question: "Sort the foods.",
		Categorization: &models.CategorizationPayload{Categories: map[string][]string{
			"Fruit":     {"apple", "banana"},
			"Vegetable": {"carrot"},
		}},
	}

	raw, _ := json.Marshal(CategorizationAnswer{Placements: map[string]string{
		"apple": "Fruit", "banana": "Fruit", "carrot": "Vegetable",
	}})
	v, err := Evaluate(card, raw)
	require.NoError(t, err)
	assert.True(t, v.Correct)

	raw, _ = json.Marshal(CategorizationAnswer{Placements: map[string]string{
		"apple": "Vegetable", "banana": "Fruit", "carrot": "Vegetable",
	}})
	v, err = Evaluate(card, raw)
	require.NoError(t, err)
	assert.False(t, v.Correct)
	assert.Equal(t, map[string]string{"apple": "Fruit"}, v.Mismatches)
}

func TestEvaluateOrdered(t *testing.T) {
	card := &models.Card{
		Type:     models.CardTypeOrdered,
		Question: "Order the steps.",
		Ordered:  &models.OrderedPayload{Items: []string{"A", "B", "C"}},
	}

	raw, _ := json.Marshal(OrderedAnswer{Order: []string{"A", "B", "C"}})
	v, err := Evaluate(card, raw)
	require.NoError(t, err)
	assert.True(t, v.Correct)

	for _, order := range [][]string{
		{"A", "C", "B"},
		{"A", "B"},
		{"A", "B", "C", "D"},
	} {
		raw, _ = json.Marshal(OrderedAnswer{Order: order})
		v, err = Evaluate(card, raw)
		require.NoError(t, err)
		assert.False(t, v.Correct, "order %v", order)
	}
}

func TestEvaluateImageCompletion(t *testing.T) {
	card := &models.Card{
		Type:     models.CardTypeImage,
		Question: "Name the labeled parts.",
		Image: &models.ImagePayload{
			ImageRef: "img/heart.png",
			Regions: []models.Region{
				{ID: "r1", Shape: models.ShapeRectangle, Width: 10, Height: 10, CorrectLabel: "aorta"},
				{ID: "r2", Shape: models.ShapeCircle, Width: 8, Height: 8, CorrectLabel: "valve"},
			},
		},
	}

	raw, _ := json.Marshal(ImageAnswer{Revealed: []string{"r1", "r2"}})
	v, err := Evaluate(card, raw)
	require.NoError(t, err)
	assert.True(t, v.Correct)
	assert.Equal(t, 2, v.RevealedRegions)
	assert.Equal(t, 2, v.TotalRegions)

	raw, _ = json.Marshal(ImageAnswer{Revealed: []string{"r1"}})
	v, err = Evaluate(card, raw)
	require.NoError(t, err)
	assert.False(t, v.Correct)
	assert.Equal(t, 1, v.RevealedRegions)
}

func TestEvaluateMalformedShapes(t *testing.T) {
	tests := []struct {
		name string
		card *models.Card
		raw  string
	}{
		{"invalid json", basicCard("x"), `{"text": `},
		{"wrong field", basicCard("x"), `{"selected": ["x"]}`},
		{"wrong type for field", choiceCard(), `{"selected": "7"}`},
		{"ordered given map", &models.Card{
			Type:    models.CardTypeOrdered,
			Ordered: &models.OrderedPayload{Items: []string{"A", "B"}},
		}, `{"order": {"A": 1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.card, json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, models.ErrMalformedResponse)
		})
	}
}

func TestEvaluateUnknownCardType(t *testing.T) {
	card := &models.Card{Type: "video", Question: "?"}
	_, err := Evaluate(card, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, models.ErrUnknownCardType)
}

// Every implemented card type must either judge the response or report a
// typed error; none may fall through to the unknown-type branch.
func TestEvaluateCoversAllCardTypes(t *testing.T) {
	for _, ct := range models.AllCardTypes {
		_, err := Evaluate(&models.Card{
			Type:           ct,
			Text:           &models.TextPayload{Answer: "x"},
			Choice:         &models.ChoicePayload{Options: []string{"a", "b"}, CorrectAnswer: "a"},
			TrueFalse:      &models.TrueFalsePayload{},
			Matching:       &models.MatchingPayload{},
			Categorization: &models.CategorizationPayload{},
			Image:          &models.ImagePayload{},
			Ordered:        &models.OrderedPayload{},
		}, json.RawMessage(`{}`))
		assert.NotErrorIs(t, err, models.ErrUnknownCardType, "card type %s", ct)
	}
}
