// Package evaluator judges submitted responses against authored cards. It is
// pure and total over the implemented card types: well-formed input never
// panics, and correctness is always judged against the canonical authored
// content, never against any displayed ordering.
package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/studyengine/pkg/models"
)

// Verdict is the outcome of evaluating one response.
type Verdict struct {
	Correct bool `json:"correct"`

	// Expected carries the canonical answer for the scalar formats.
	Expected string `json:"expected,omitempty"`
	// Mismatches maps each wrongly placed item to its expected value
	// (matching and categorization cards).
	Mismatches map[string]string `json:"mismatches,omitempty"`
	// Missing and Extra detail multi-select verdicts.
	Missing []string `json:"missing,omitempty"`
	Extra   []string `json:"extra,omitempty"`
	// RevealedRegions / TotalRegions detail image completion.
	RevealedRegions int `json:"revealed_regions,omitempty"`
	TotalRegions    int `json:"total_regions,omitempty"`
}

// Evaluate decodes the raw response for the card's type and judges it.
// A response whose shape does not match yields ErrMalformedResponse; a card
// type the engine does not implement yields ErrUnknownCardType.
func Evaluate(card *models.Card, raw json.RawMessage) (Verdict, error) {
	switch card.Type {
	case models.CardTypeBasic, models.CardTypeCloze:
		var a TextAnswer
		if err := decode(raw, &a); err != nil {
			return Verdict{}, err
		}
		return evaluateText(card.Text, a), nil
	case models.CardTypeMultipleChoice:
		var a ChoiceAnswer
		if err := decode(raw, &a); err != nil {
			return Verdict{}, err
		}
		return evaluateChoice(card.Choice, a)
	case models.CardTypeTrueFalse:
		var a TrueFalseAnswer
		if err := decode(raw, &a); err != nil {
			return Verdict{}, err
		}
		if a.Answer == nil {
			return Verdict{}, fmt.Errorf("%w: missing answer field", models.ErrMalformedResponse)
		}
		return Verdict{
			Correct:  *a.Answer == card.TrueFalse.CorrectAnswer,
			Expected: fmt.Sprintf("%t", card.TrueFalse.CorrectAnswer),
		}, nil
	case models.CardTypeMatching:
		var a MatchingAnswer
		if err := decode(raw, &a); err != nil {
			return Verdict{}, err
		}
		return evaluateMatching(card.Matching, a), nil
	case models.CardTypeCategorization:
		var a CategorizationAnswer
		if err := decode(raw, &a); err != nil {
			return Verdict{}, err
		}
		return evaluateCategorization(card.Categorization, a), nil
	case models.CardTypeOrdered:
		var a OrderedAnswer
		if err := decode(raw, &a); err != nil {
			return Verdict{}, err
		}
		return evaluateOrdered(card.Ordered, a), nil
	case models.CardTypeImage:
		var a ImageAnswer
		if err := decode(raw, &a); err != nil {
			return Verdict{}, err
		}
		return evaluateImage(card.Image, a), nil
	default:
		return Verdict{}, fmt.Errorf("%w: %q", models.ErrUnknownCardType, card.Type)
	}
}

func decode(raw json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	return nil
}

// normalize applies the text-match rule: case-insensitive, whitespace-trimmed.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func evaluateText(payload *models.TextPayload, a TextAnswer) Verdict {
	return Verdict{
		Correct:  normalize(a.Text) == normalize(payload.Answer),
		Expected: payload.Answer,
	}
}

func evaluateChoice(payload *models.ChoicePayload, a ChoiceAnswer) (Verdict, error) {
	if !payload.AllowMultipleCorrect {
		if len(a.Selected) != 1 {
			return Verdict{}, fmt.Errorf("%w: single-select card expects exactly one selection, got %d",
				models.ErrMalformedResponse, len(a.Selected))
		}
		return Verdict{
			Correct:  a.Selected[0] == payload.CorrectAnswer,
			Expected: payload.CorrectAnswer,
		}, nil
	}

	// Multi-select: exact set equality, no partial credit.
	want := make(map[string]bool, len(payload.CorrectAnswers))
	for _, s := range payload.CorrectAnswers {
		want[s] = true
	}
	got := make(map[string]bool, len(a.Selected))
	for _, s := range a.Selected {
		got[s] = true
	}

	v := Verdict{Correct: true}
	for _, s := range payload.CorrectAnswers {
		if !got[s] {
			v.Missing = append(v.Missing, s)
			v.Correct = false
		}
	}
	for _, s := range a.Selected {
		if !want[s] {
			v.Extra = append(v.Extra, s)
			v.Correct = false
		}
	}
	return v, nil
}

func evaluateMatching(payload *models.MatchingPayload, a MatchingAnswer) Verdict {
	v := Verdict{Correct: true}
	for _, pair := range payload.Pairs {
		if a.Matches[pair.Left] != pair.Right {
			if v.Mismatches == nil {
				v.Mismatches = make(map[string]string)
			}
			v.Mismatches[pair.Left] = pair.Right
			v.Correct = false
		}
	}
	return v
}

func evaluateCategorization(payload *models.CategorizationPayload, a CategorizationAnswer) Verdict {
	v := Verdict{Correct: true}
	for category, items := range payload.Categories {
		for _, item := range items {
			if a.Placements[item] != category {
				if v.Mismatches == nil {
					v.Mismatches = make(map[string]string)
				}
				v.Mismatches[item] = category
				v.Correct = false
			}
		}
	}
	return v
}

func evaluateOrdered(payload *models.OrderedPayload, a OrderedAnswer) Verdict {
	v := Verdict{Correct: len(a.Order) == len(payload.Items)}
	if v.Correct {
		for i, item := range payload.Items {
			if a.Order[i] != item {
				v.Correct = false
				break
			}
		}
	}
	return v
}

// evaluateImage is completion-based: the card counts as recalled only when
// every authored region has been revealed.
func evaluateImage(payload *models.ImagePayload, a ImageAnswer) Verdict {
	revealed := make(map[string]bool, len(a.Revealed))
	for _, id := range a.Revealed {
		revealed[id] = true
	}
	v := Verdict{Correct: true, TotalRegions: len(payload.Regions)}
	for _, r := range payload.Regions {
		if revealed[r.ID] {
			v.RevealedRegions++
		} else {
			v.Correct = false
		}
	}
	return v
}
