package diagnosis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/abhisek/adaptly/internal/question"
)

// Classifier is a rule that maps a wrong answer to a misconception code.
// Returns ("", false) if the rule doesn't apply.
type Classifier interface {
	Name() string
	Classify(input *Input) (string, bool)
}

// DefaultClassifiers returns classifiers in priority order. The choice
// rule always answers for choice questions, so the numeric rule only sees
// free-response types.
func DefaultClassifiers() []Classifier {
	return []Classifier{
		&ChoiceClassifier{},
		&NumericClassifier{},
		&ConfiguredClassifier{},
	}
}

// RunClassifiers executes classifiers in order.
// Returns the first match, or ("", "") if no rules apply.
func RunClassifiers(classifiers []Classifier, input *Input) (string, string) {
	for _, c := range classifiers {
		if code, ok := c.Classify(input); ok {
			return code, c.Name()
		}
	}
	return "", ""
}

// ChoiceClassifier maps selected options to codes: the config's
// option map, then the option's own code, then a per-option code.
type ChoiceClassifier struct{}

func (c *ChoiceClassifier) Name() string { return "choice" }

func (c *ChoiceClassifier) Classify(input *Input) (string, bool) {
	q := input.Question
	if !q.Type.IsChoice() {
		return "", false
	}

	if key, ok := q.Key.(question.ChoiceKey); ok && key.Multi {
		list, _ := input.Answer.([]any)
		for _, v := range list {
			idx, ok := optionIndex(v)
			if !ok {
				continue
			}
			if code := optionCode(q, idx); code != "" {
				return code, true
			}
		}
		if code := strings.TrimSpace(q.Config.MisconceptionCode); code != "" {
			return code, true
		}
		return "mcq_multi_select_error", true
	}

	idx, ok := optionIndex(input.Answer)
	if !ok {
		if code := strings.TrimSpace(q.Config.MisconceptionCode); code != "" {
			return code, true
		}
		return "mcq_unanswered", true
	}
	if code := optionCode(q, idx); code != "" {
		return code, true
	}
	return fmt.Sprintf("option_%d_misconception", idx), true
}

func optionCode(q *question.Question, idx int) string {
	if code := q.Config.OptionCode(idx); code != "" {
		return code
	}
	if idx >= 0 && idx < len(q.Options) {
		return strings.TrimSpace(q.Options[idx].MisconceptionCode)
	}
	return ""
}

func optionIndex(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// NumericClassifier compares numeric free responses with the expected
// number and names the direction or size of the slip.
type NumericClassifier struct{}

func (c *NumericClassifier) Name() string { return "numeric" }

const numericTolerance = 1e-9

func (c *NumericClassifier) Classify(input *Input) (string, bool) {
	q := input.Question
	switch q.Type {
	case question.TypeFillInTheBlank, question.TypeTextInput, question.TypeMeasure:
	default:
		return "", false
	}

	expected, ok := question.ParseNumber(q.AnswerText)
	if !ok {
		return "", false
	}
	actual, ok := question.ParseNumber(answerText(input.Answer))
	if !ok {
		return "", false
	}

	diff := actual - expected
	switch {
	case math.Abs(math.Abs(diff)-1) < numericTolerance:
		return "off_by_one", true
	case math.Abs(math.Abs(diff)-10) < numericTolerance:
		return "place_value_shift", true
	case diff > 0:
		return "overestimate", true
	case diff < 0:
		return "underestimate", true
	}
	return "", false
}

// answerText flattens an answer to text. Blank maps join their values in
// key order. Numbers are written in plain decimal so large values parse
// back unchanged.
func answerText(v any) string {
	switch a := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(a))
		for k := range a {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			b.WriteString(scalarText(a[k]))
		}
		return b.String()
	default:
		return scalarText(a)
	}
}

func scalarText(v any) string {
	switch a := v.(type) {
	case nil:
		return ""
	case string:
		return a
	case float64:
		return strconv.FormatFloat(a, 'f', -1, 64)
	case json.Number:
		return a.String()
	default:
		return fmt.Sprintf("%v", a)
	}
}

// ConfiguredClassifier returns the question's authored misconception
// code.
type ConfiguredClassifier struct{}

func (c *ConfiguredClassifier) Name() string { return "configured" }

func (c *ConfiguredClassifier) Classify(input *Input) (string, bool) {
	code := strings.TrimSpace(input.Question.Config.MisconceptionCode)
	return code, code != ""
}
