package question

import (
	"encoding/json"
	"strings"
)

// Type identifies how a question is answered.
type Type string

const (
	TypeMCQ             Type = "mcq"
	TypeImageChoice     Type = "imageChoice"
	TypeTextInput       Type = "textInput"
	TypeFillInTheBlank  Type = "fillInTheBlank"
	TypeGridArithmetic  Type = "gridArithmetic"
	TypeDragAndDrop     Type = "dragAndDrop"
	TypeSorting         Type = "sorting"
	TypeFourPicsOneWord Type = "fourPicsOneWord"
	TypeMeasure         Type = "measure"
	TypeShadeGrid       Type = "shadeGrid"
)

// IsChoice reports whether answers are option indices.
func (t Type) IsChoice() bool {
	return t == TypeMCQ || t == TypeImageChoice
}

// Difficulty is the discrete band that drives selection.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the bands from easiest to hardest.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty normalizes s to a known band. Unknown values map to Easy.
func ParseDifficulty(s string) Difficulty {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Medium, Hard:
		return d
	default:
		return Easy
	}
}

// Index returns the position of d in Difficulties.
func (d Difficulty) Index() int {
	for i, v := range Difficulties {
		if v == d {
			return i
		}
	}
	return 0
}

// Shift moves d by step bands, clamped to [Easy, Hard].
func (d Difficulty) Shift(step int) Difficulty {
	i := min(max(d.Index()+step, 0), len(Difficulties)-1)
	return Difficulties[i]
}

// Distance returns the number of bands between d and o.
func (d Difficulty) Distance(o Difficulty) int {
	diff := d.Index() - o.Index()
	if diff < 0 {
		return -diff
	}
	return diff
}

// Question is an immutable catalog entry with its answer key decoded.
type Question struct {
	ID           string
	MicroskillID string
	Type         Type
	Difficulty   Difficulty
	SortOrder    int
	Text         string
	Solution     string

	// AnswerText is the authored correct-answer text, kept for numeric
	// misconception checks and feedback display.
	AnswerText string

	Key     AnswerKey
	Options []Option
	Config  AdaptiveConfig

	// Doc is the document the question was decoded from.
	Doc Document
}

// Option is one selectable choice. Authored options are either plain
// strings or objects with a label.
type Option struct {
	Label             string
	MisconceptionCode string
	Raw               json.RawMessage
}

func (o *Option) UnmarshalJSON(b []byte) error {
	o.Raw = append(json.RawMessage(nil), b...)
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		o.Label = s
		return nil
	}
	var obj struct {
		Label              string `json:"label"`
		Text               string `json:"text"`
		MisconceptionCode  string `json:"misconceptionCode"`
		MisconceptionCode2 string `json:"misconception_code"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		// Non-string, non-object options carry no label.
		return nil
	}
	o.Label = obj.Label
	if o.Label == "" {
		o.Label = obj.Text
	}
	o.MisconceptionCode = firstNonEmpty(obj.MisconceptionCode, obj.MisconceptionCode2)
	return nil
}

func (o Option) MarshalJSON() ([]byte, error) {
	if len(o.Raw) > 0 {
		return o.Raw, nil
	}
	return json.Marshal(o.Label)
}

// isObject reports whether the option was authored as an object.
func (o Option) isObject() bool {
	s := strings.TrimSpace(string(o.Raw))
	return strings.HasPrefix(s, "{")
}

// DragItem is a draggable item and the group it belongs in.
type DragItem struct {
	ID            string `json:"id"`
	Label         string `json:"label,omitempty"`
	TargetGroupID string `json:"targetGroupId,omitempty"`
}

// RemediationCodes returns every misconception code this question can
// remediate, in authored order.
func (q *Question) RemediationCodes() []string {
	c := q.Config
	var out []string
	for _, code := range append([]string{c.MisconceptionCode}, c.MisconceptionCodes...) {
		out = appendTrimmed(out, code)
	}
	for _, code := range c.MisconceptionTags {
		out = appendTrimmed(out, code)
	}
	for _, code := range c.RemediationFor {
		out = appendTrimmed(out, code)
	}
	return out
}

// Remediates reports whether the question is tagged for code.
func (q *Question) Remediates(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	for _, c := range q.RemediationCodes() {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// ConceptTags returns the concept tags from the adaptive config.
func (q *Question) ConceptTags() []string {
	if q.Config.ConceptTags == nil {
		return []string{}
	}
	return q.Config.ConceptTags
}

func appendTrimmed(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
