package evaluator

// One response shape per question format. The evaluator decodes the raw
// submission into the shape the card type expects; anything else is a
// malformed response, reported and never guessed at.

// TextAnswer answers basic and cloze cards.
type TextAnswer struct {
	Text string `json:"text"`
}

// ChoiceAnswer answers multiple_choice cards. Single-select cards expect
// exactly one selection.
type ChoiceAnswer struct {
	Selected []string `json:"selected"`
}

// TrueFalseAnswer answers true_false cards. Pointer so a missing field is
// distinguishable from false.
type TrueFalseAnswer struct {
	Answer *bool `json:"answer"`
}

// MatchingAnswer answers matching cards: left item to the chosen right item.
type MatchingAnswer struct {
	Matches map[string]string `json:"matches"`
}

// CategorizationAnswer answers categorization cards: item to the chosen
// category.
type CategorizationAnswer struct {
	Placements map[string]string `json:"placements"`
}

// OrderedAnswer answers ordered cards: the submitted sequence.
type OrderedAnswer struct {
	Order []string `json:"order"`
}

// ImageAnswer answers image occlusion cards: the set of revealed region ids.
type ImageAnswer struct {
	Revealed []string `json:"revealed"`
}
