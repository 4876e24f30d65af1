package question

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Document is a question as authored in the catalog.
type Document struct {
	ID                   string            `json:"id"`
	MicroskillID         string            `json:"microSkillId"`
	Type                 Type              `json:"type"`
	Difficulty           string            `json:"difficulty,omitempty"`
	SortOrder            int               `json:"sortOrder,omitempty"`
	Complexity           float64           `json:"complexity,omitempty"`
	QuestionText         string            `json:"questionText,omitempty"`
	Solution             string            `json:"solution,omitempty"`
	Parts                json.RawMessage   `json:"parts,omitempty"`
	Options              []json.RawMessage `json:"options,omitempty"`
	Items                json.RawMessage   `json:"items,omitempty"`
	DragItems            []DragItem        `json:"dragItems,omitempty"`
	DropGroups           json.RawMessage   `json:"dropGroups,omitempty"`
	IsMultiSelect        bool              `json:"isMultiSelect,omitempty"`
	IsVertical           bool              `json:"isVertical,omitempty"`
	ShowSubmitButton     bool              `json:"showSubmitButton,omitempty"`
	CorrectAnswerIndex   *int              `json:"correctAnswerIndex,omitempty"`
	CorrectAnswerIndices []int             `json:"correctAnswerIndices,omitempty"`
	CorrectAnswerText    string            `json:"correctAnswerText,omitempty"`
	AdaptiveConfig       json.RawMessage   `json:"adaptiveConfig,omitempty"`
}

// AdaptiveConfig is the typed view of a question's adaptive configuration.
type AdaptiveConfig struct {
	ConceptTags           []string          `json:"conceptTags,omitempty"`
	MisconceptionCode     string            `json:"misconceptionCode,omitempty"`
	MisconceptionCodes    []string          `json:"misconceptionCodes,omitempty"`
	MisconceptionTags     []string          `json:"misconceptionTags,omitempty"`
	RemediationFor        []string          `json:"remediationFor,omitempty"`
	MisconceptionByOption map[string]string `json:"misconceptionByOption,omitempty"`
	MisconceptionMap      map[string]string `json:"misconception_map,omitempty"`

	// Measurement targets, in lookup order.
	TargetUnits  Number `json:"target_units"`
	LineUnits    Number `json:"line_units"`
	LineLength   Number `json:"line_length"`
	TargetLength Number `json:"target_length"`

	// Shade-grid geometry.
	TargetShaded    Number `json:"targetShaded"`
	Numerator       Number `json:"numerator"`
	Denominator     Number `json:"denominator"`
	GridRows        Number `json:"gridRows"`
	GridCols        Number `json:"gridCols"`
	GridMode        string `json:"gridMode,omitempty"`
	Orientation     string `json:"orientation,omitempty"`
	GridOrientation string `json:"gridOrientation,omitempty"`
	BarOrientation  string `json:"barOrientation,omitempty"`
	ModelType       string `json:"modelType,omitempty"`
	VisualModel     string `json:"visualModel,omitempty"`
	ShapeModel      string `json:"shapeModel,omitempty"`
	Segments        Number `json:"segments"`
}

// OptionCode returns the configured misconception code for option idx.
func (c AdaptiveConfig) OptionCode(idx int) string {
	key := strconv.Itoa(idx)
	if code := strings.TrimSpace(c.MisconceptionByOption[key]); code != "" {
		return code
	}
	return strings.TrimSpace(c.MisconceptionMap[key])
}

// Number is a numeric config value that may be authored as a JSON number
// or a numeric string. Anything else decodes as absent.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = Number{Value: f, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, ok := ParseNumber(s); ok {
			*n = Number{Value: v, Valid: true}
		}
	}
	return nil
}

// FromDocument decodes an authored document. Answer keys that cannot be
// decoded produce an InvalidKey, which is never graded correct.
func FromDocument(doc Document) (*Question, error) {
	if strings.TrimSpace(doc.ID) == "" {
		return nil, fmt.Errorf("question id is required")
	}
	if doc.Type == "" {
		return nil, fmt.Errorf("question %s: type is required", doc.ID)
	}

	q := &Question{
		ID:           doc.ID,
		MicroskillID: doc.MicroskillID,
		Type:         doc.Type,
		Difficulty:   ParseDifficulty(doc.Difficulty),
		SortOrder:    doc.SortOrder,
		Text:         doc.QuestionText,
		Solution:     doc.Solution,
		AnswerText:   doc.CorrectAnswerText,
		Doc:          doc,
	}

	if len(doc.AdaptiveConfig) > 0 && string(doc.AdaptiveConfig) != "null" {
		if err := json.Unmarshal(doc.AdaptiveConfig, &q.Config); err != nil {
			return nil, fmt.Errorf("question %s: decode adaptive config: %w", doc.ID, err)
		}
	}

	for _, raw := range doc.Options {
		var opt Option
		if err := opt.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("question %s: decode option: %w", doc.ID, err)
		}
		q.Options = append(q.Options, opt)
	}

	q.Key = decodeKey(doc, q)
	return q, nil
}

func decodeKey(doc Document, q *Question) AnswerKey {
	switch doc.Type {
	case TypeMCQ, TypeImageChoice:
		if doc.IsMultiSelect {
			return ChoiceKey{Multi: true, Indices: append([]int(nil), doc.CorrectAnswerIndices...)}
		}
		if doc.CorrectAnswerIndex == nil {
			return InvalidKey{Reason: "missing correctAnswerIndex"}
		}
		return ChoiceKey{Index: *doc.CorrectAnswerIndex}

	case TypeTextInput:
		return TextKey{Text: doc.CorrectAnswerText}

	case TypeFillInTheBlank, TypeGridArithmetic:
		var raw map[string]any
		if err := json.Unmarshal([]byte(doc.CorrectAnswerText), &raw); err != nil || raw == nil {
			return InvalidKey{Reason: "correctAnswerText is not a JSON object"}
		}
		fields := make(map[string]string, len(raw))
		for k, v := range raw {
			fields[k] = stringify(v)
		}
		return FieldsKey{Fields: fields}

	case TypeDragAndDrop:
		targets := make(map[string]string)
		for _, item := range doc.DragItems {
			if strings.TrimSpace(item.TargetGroupID) == "" {
				continue
			}
			targets[item.ID] = item.TargetGroupID
		}
		return PlacementKey{Targets: targets}

	case TypeSorting:
		var raw []any
		if err := json.Unmarshal([]byte(doc.CorrectAnswerText), &raw); err != nil || len(raw) == 0 {
			return InvalidKey{Reason: "correctAnswerText is not a non-empty JSON array"}
		}
		order := make([]string, len(raw))
		for i, v := range raw {
			order[i] = stringify(v)
		}
		return OrderKey{Order: order}

	case TypeFourPicsOneWord:
		return WordKey{Word: doc.CorrectAnswerText}

	case TypeMeasure:
		v, ok := ParseNumber(doc.CorrectAnswerText)
		if !ok {
			return InvalidKey{Reason: "correctAnswerText has no number"}
		}
		return MeasureKey{Value: v}

	case TypeShadeGrid:
		target, ok := shadeTarget(q)
		if !ok {
			return InvalidKey{Reason: "no shade target"}
		}
		return ShadeKey{Target: target}

	default:
		return InvalidKey{Reason: fmt.Sprintf("unsupported question type %q", doc.Type)}
	}
}
