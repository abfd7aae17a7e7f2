package models

import (
	"fmt"
	"strings"
	"time"
)

// CardType identifies the question format of a card.
type CardType string

const (
	CardTypeBasic          CardType = "basic"
	CardTypeCloze          CardType = "cloze"
	CardTypeMultipleChoice CardType = "multiple_choice"
	CardTypeTrueFalse      CardType = "true_false"
	CardTypeMatching       CardType = "matching"
	CardTypeCategorization CardType = "categorization"
	CardTypeImage          CardType = "image"
	CardTypeOrdered        CardType = "ordered"
)

// AllCardTypes lists every card type the engine implements.
var AllCardTypes = []CardType{
	CardTypeBasic,
	CardTypeCloze,
	CardTypeMultipleChoice,
	CardTypeTrueFalse,
	CardTypeMatching,
	CardTypeCategorization,
	CardTypeImage,
	CardTypeOrdered,
}

// IsValid reports whether t is a known card type.
func (t CardType) IsValid() bool {
	switch t {
	case CardTypeBasic, CardTypeCloze, CardTypeMultipleChoice, CardTypeTrueFalse,
		CardTypeMatching, CardTypeCategorization, CardTypeImage, CardTypeOrdered:
		return true
	}
	return false
}

// Card is the immutable authored content of a question. Exactly one payload
// field is populated, matching Type. Authored data arrives pre-validated from
// the course catalog; Validate is the defensive check at import boundaries.
type Card struct {
	ID          string    `json:"id" db:"id"`
	CourseID    string    `json:"course_id" db:"course_id"`
	Type        CardType  `json:"card_type" db:"card_type"`
	Question    string    `json:"question" db:"question"`
	Hint        string    `json:"hint,omitempty" db:"hint"`
	Explanation string    `json:"explanation,omitempty" db:"explanation"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	Text           *TextPayload           `json:"text,omitempty"`
	Choice         *ChoicePayload         `json:"choice,omitempty"`
	TrueFalse      *TrueFalsePayload      `json:"true_false,omitempty"`
	Matching       *MatchingPayload       `json:"matching,omitempty"`
	Categorization *CategorizationPayload `json:"categorization,omitempty"`
	Image          *ImagePayload          `json:"image,omitempty"`
	Ordered        *OrderedPayload        `json:"ordered,omitempty"`
}

// TextPayload backs basic and cloze cards: a single canonical answer string.
type TextPayload struct {
	Answer string `json:"answer"`
}

// ChoicePayload backs multiple_choice cards. CorrectAnswer is used when
// AllowMultipleCorrect is false, CorrectAnswers when it is true.
type ChoicePayload struct {
	Options              []string `json:"options"`
	AllowMultipleCorrect bool     `json:"allow_multiple_correct"`
	CorrectAnswer        string   `json:"correct_answer,omitempty"`
	CorrectAnswers       []string `json:"correct_answers,omitempty"`
}

// TrueFalsePayload backs true_false cards.
type TrueFalsePayload struct {
	CorrectAnswer bool `json:"correct_answer"`
}

// MatchPair is one authored left/right pairing of a matching card.
type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// MatchingPayload backs matching cards. Pair order is the canonical authored
// order; display order of the right column is a per-presentation artifact.
type MatchingPayload struct {
	Pairs []MatchPair `json:"pairs"`
}

// CategorizationPayload backs categorization cards: category name to the set
// of items that belong in it.
type CategorizationPayload struct {
	Categories map[string][]string `json:"categories"`
}

// RegionShape identifies the geometry of an occlusion region.
type RegionShape string

const (
	ShapeRectangle RegionShape = "rectangle"
	ShapeCircle    RegionShape = "circle"
	ShapePolygon   RegionShape = "polygon"
)

// Region is an authored hidden area over an image. Geometry coordinates are
// in the image's own pixel space.
type Region struct {
	ID           string      `json:"id"`
	Shape        RegionShape `json:"shape"`
	X            float64     `json:"x,omitempty"`
	Y            float64     `json:"y,omitempty"`
	Width        float64     `json:"width,omitempty"`
	Height       float64     `json:"height,omitempty"`
	Points       [][2]float64 `json:"points,omitempty"`
	CorrectLabel string      `json:"correct_label"`
}

// ImagePayload backs image occlusion cards. Study-time correctness is
// completion-based: the learner must reveal every region.
type ImagePayload struct {
	ImageRef string   `json:"image_ref"`
	Regions  []Region `json:"regions"`
}

// OrderedPayload backs ordered cards; Items is the canonical correct order.
type OrderedPayload struct {
	Items []string `json:"items"`
}

// payloadCount returns how many payload fields are populated.
func (c *Card) payloadCount() int {
	n := 0
	for _, set := range []bool{
		c.Text != nil, c.Choice != nil, c.TrueFalse != nil, c.Matching != nil,
		c.Categorization != nil, c.Image != nil, c.Ordered != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Validate checks the authoring invariants for the card's declared type.
// Violations are reported as ErrInvalidCardPayload; an unimplemented type as
// ErrUnknownCardType.
func (c *Card) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCardType, c.Type)
	}
	if strings.TrimSpace(c.Question) == "" {
		return fmt.Errorf("%w: question is empty", ErrInvalidCardPayload)
	}
	if c.payloadCount() != 1 {
		return fmt.Errorf("%w: exactly one payload must be set, got %d", ErrInvalidCardPayload, c.payloadCount())
	}

	switch c.Type {
	case CardTypeBasic, CardTypeCloze:
		if c.Text == nil {
			return payloadMismatch(c.Type)
		}
		if strings.TrimSpace(c.Text.Answer) == "" {
			return fmt.Errorf("%w: answer is empty", ErrInvalidCardPayload)
		}
	case CardTypeMultipleChoice:
		if c.Choice == nil {
			return payloadMismatch(c.Type)
		}
		return c.Choice.validate()
	case CardTypeTrueFalse:
		if c.TrueFalse == nil {
			return payloadMismatch(c.Type)
		}
	case CardTypeMatching:
		if c.Matching == nil {
			return payloadMismatch(c.Type)
		}
		if len(c.Matching.Pairs) < 2 {
			return fmt.Errorf("%w: matching requires at least 2 pairs", ErrInvalidCardPayload)
		}
		for _, p := range c.Matching.Pairs {
			if p.Left == "" || p.Right == "" {
				return fmt.Errorf("%w: matching pair has an empty side", ErrInvalidCardPayload)
			}
		}
	case CardTypeCategorization:
		if c.Categorization == nil {
			return payloadMismatch(c.Type)
		}
		if len(c.Categorization.Categories) < 2 {
			return fmt.Errorf("%w: categorization requires at least 2 categories", ErrInvalidCardPayload)
		}
		for name, items := range c.Categorization.Categories {
			if len(items) == 0 {
				return fmt.Errorf("%w: category %q is empty", ErrInvalidCardPayload, name)
			}
		}
	case CardTypeImage:
		if c.Image == nil {
			return payloadMismatch(c.Type)
		}
		if c.Image.ImageRef == "" {
			return fmt.Errorf("%w: image card has no image reference", ErrInvalidCardPayload)
		}
		if len(c.Image.Regions) == 0 {
			return fmt.Errorf("%w: image card has no regions", ErrInvalidCardPayload)
		}
		for _, r := range c.Image.Regions {
			if r.ID == "" {
				return fmt.Errorf("%w: region has no id", ErrInvalidCardPayload)
			}
			switch r.Shape {
			case ShapeRectangle, ShapeCircle:
				if r.Width <= 0 || r.Height <= 0 {
					return fmt.Errorf("%w: region %q has non-positive extent", ErrInvalidCardPayload, r.ID)
				}
			case ShapePolygon:
				if len(r.Points) < 3 {
					return fmt.Errorf("%w: polygon region %q needs at least 3 points", ErrInvalidCardPayload, r.ID)
				}
			default:
				return fmt.Errorf("%w: region %q has unknown shape %q", ErrInvalidCardPayload, r.ID, r.Shape)
			}
		}
	case CardTypeOrdered:
		if c.Ordered == nil {
			return payloadMismatch(c.Type)
		}
		if len(c.Ordered.Items) < 2 {
			return fmt.Errorf("%w: ordered requires at least 2 items", ErrInvalidCardPayload)
		}
	}
	return nil
}

func (p *ChoicePayload) validate() error {
	if len(p.Options) < 2 {
		return fmt.Errorf("%w: multiple_choice requires at least 2 options", ErrInvalidCardPayload)
	}
	optionSet := make(map[string]bool, len(p.Options))
	for _, o := range p.Options {
		optionSet[o] = true
	}
	if p.AllowMultipleCorrect {
		if len(p.CorrectAnswers) == 0 {
			return fmt.Errorf("%w: multi-select card has no correct answers", ErrInvalidCardPayload)
		}
		for _, a := range p.CorrectAnswers {
			if !optionSet[a] {
				return fmt.Errorf("%w: correct answer %q is not an option", ErrInvalidCardPayload, a)
			}
		}
	} else {
		if p.CorrectAnswer == "" {
			return fmt.Errorf("%w: single-select card has no correct answer", ErrInvalidCardPayload)
		}
		if !optionSet[p.CorrectAnswer] {
			return fmt.Errorf("%w: correct answer %q is not an option", ErrInvalidCardPayload, p.CorrectAnswer)
		}
	}
	return nil
}

func payloadMismatch(t CardType) error {
	return fmt.Errorf("%w: payload does not match card type %q", ErrInvalidCardPayload, t)
}
