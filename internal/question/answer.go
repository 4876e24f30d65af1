package question

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// MalformedAnswerError reports an answer whose JSON shape does not fit
// the question type.
type MalformedAnswerError struct {
	Type Type
	Err  error
}

func (e *MalformedAnswerError) Error() string {
	return fmt.Sprintf("malformed %s answer: %v", e.Type, e.Err)
}

func (e *MalformedAnswerError) Unwrap() error { return e.Err }

// DecodeAnswer parses a raw answer and checks its shape against the
// question type. An empty payload decodes as nil (unanswered).
func DecodeAnswer(q *Question, raw json.RawMessage) (any, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &MalformedAnswerError{Type: q.Type, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := checkShape(q, v); err != nil {
		return nil, &MalformedAnswerError{Type: q.Type, Err: err}
	}
	return v, nil
}

// Grade reports whether answer is correct for q. There is no partial
// credit.
func Grade(q *Question, answer any) bool {
	switch k := q.Key.(type) {
	case ChoiceKey:
		return gradeChoice(k, answer)
	case TextKey:
		return normalizeText(stringify(answer)) == normalizeText(k.Text)
	case FieldsKey:
		got, _ := answer.(map[string]any)
		for id, want := range k.Fields {
			if normalizeText(stringify(got[id])) != normalizeText(want) {
				return false
			}
		}
		return true
	case PlacementKey:
		got, _ := answer.(map[string]any)
		for item, group := range k.Targets {
			if stringify(got[item]) != group {
				return false
			}
		}
		return true
	case OrderKey:
		got, ok := answer.([]any)
		if !ok || len(got) != len(k.Order) {
			return false
		}
		for i, v := range got {
			if stringify(v) != k.Order[i] {
				return false
			}
		}
		return true
	case WordKey:
		var word string
		if letters, ok := answer.([]any); ok {
			var b strings.Builder
			for _, l := range letters {
				b.WriteString(stringify(l))
			}
			word = b.String()
		} else {
			word = stringify(answer)
		}
		return strings.ToUpper(word) == strings.ToUpper(k.Word)
	case MeasureKey:
		got, ok := numberOf(answer)
		if !ok {
			return false
		}
		diff := got - k.Value
		return diff < 0.0001 && diff > -0.0001
	case ShadeKey:
		got, ok := shadedCount(answer)
		return ok && got == k.Target
	case InvalidKey:
		return false
	default:
		return false
	}
}

func gradeChoice(k ChoiceKey, answer any) bool {
	if !k.Multi {
		idx, ok := indexOf(answer)
		return ok && idx == k.Index
	}
	list, _ := answer.([]any)
	got := make([]int, 0, len(list))
	for _, v := range list {
		idx, ok := indexOf(v)
		if !ok {
			return false
		}
		got = append(got, idx)
	}
	want := slices.Clone(k.Indices)
	slices.Sort(got)
	slices.Sort(want)
	return slices.Equal(got, want)
}

// shadedCount reads a shade-grid answer: a count, a list of shaded cells,
// or an object with a selection list or count.
func shadedCount(answer any) (float64, bool) {
	switch v := answer.(type) {
	case float64:
		return v, true
	case string:
		return ParseNumber(v)
	case []any:
		return float64(len(v)), true
	case map[string]any:
		if sel, ok := v["selected"].([]any); ok {
			return float64(len(sel)), true
		}
		return numberOf(v["count"])
	default:
		return 0, false
	}
}
