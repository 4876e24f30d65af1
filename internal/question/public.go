package question

import (
	"encoding/json"
	"math/rand/v2"
	"regexp"
	"strings"
)

// Public is the learner-facing projection of a question.
type Public struct {
	ID               string           `json:"id"`
	MicroskillID     string           `json:"microSkillId"`
	QuestionText     string           `json:"questionText"`
	Type             Type             `json:"type"`
	Difficulty       Difficulty       `json:"difficulty"`
	Complexity       float64          `json:"complexity"`
	Parts            json.RawMessage  `json:"parts"`
	Options          []Option         `json:"options"`
	Items            json.RawMessage  `json:"items"`
	DragItems        []PublicDragItem `json:"dragItems"`
	DropGroups       json.RawMessage  `json:"dropGroups"`
	AdaptiveConfig   json.RawMessage  `json:"adaptiveConfig"`
	MeasureTarget    *float64         `json:"measureTarget"`
	WordLength       *int             `json:"wordLength"`
	LetterBank       []string         `json:"letterBank"`
	IsMultiSelect    bool             `json:"isMultiSelect"`
	IsVertical       bool             `json:"isVertical"`
	ShowSubmitButton bool             `json:"showSubmitButton"`
}

// PublicDragItem hides the target group of a drag item.
type PublicDragItem struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]`)

// ToPublic projects q for display. rnd shuffles the four-pics letter bank;
// a nil rnd keeps the letters in order.
func ToPublic(q *Question, rnd *rand.Rand) *Public {
	if q == nil {
		return nil
	}
	d := q.Doc
	p := &Public{
		ID:               q.ID,
		MicroskillID:     q.MicroskillID,
		QuestionText:     q.Text,
		Type:             q.Type,
		Difficulty:       q.Difficulty,
		Complexity:       d.Complexity,
		Parts:            orEmptyList(d.Parts),
		Options:          q.Options,
		Items:            orEmptyList(d.Items),
		DragItems:        []PublicDragItem{},
		DropGroups:       orEmptyList(d.DropGroups),
		AdaptiveConfig:   orNull(d.AdaptiveConfig),
		IsMultiSelect:    d.IsMultiSelect,
		IsVertical:       d.IsVertical,
		ShowSubmitButton: d.ShowSubmitButton,
	}
	if p.Options == nil {
		p.Options = []Option{}
	}
	for _, item := range d.DragItems {
		p.DragItems = append(p.DragItems, PublicDragItem{ID: item.ID, Label: item.Label})
	}
	if target, ok := MeasureTarget(q); ok {
		p.MeasureTarget = &target
	}
	if q.Type == TypeFourPicsOneWord {
		word := nonAlnum.ReplaceAllString(strings.ToUpper(q.AnswerText), "")
		if word != "" {
			n := len(word)
			letters := strings.Split(word, "")
			if rnd != nil {
				rnd.Shuffle(len(letters), func(i, j int) { letters[i], letters[j] = letters[j], letters[i] })
			}
			p.WordLength = &n
			p.LetterBank = letters
		}
	}
	return p
}

// MeasureTarget returns the length a measure question asks for.
func MeasureTarget(q *Question) (float64, bool) {
	if q.Type != TypeMeasure {
		return 0, false
	}
	c := q.Config
	for _, n := range []Number{c.TargetUnits, c.LineUnits, c.LineLength, c.TargetLength} {
		if n.Valid {
			return n.Value, true
		}
	}
	return ParseNumber(q.AnswerText)
}

func orEmptyList(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("[]")
	}
	return raw
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
