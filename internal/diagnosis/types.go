package diagnosis

import (
	"strings"

	"github.com/abhisek/adaptly/internal/question"
)

// Input holds the context for detecting a misconception.
type Input struct {
	Question *question.Question
	Answer   any // decoded answer payload
	Correct  bool

	// Candidates are misconception codes known for the microskill. Only
	// the LLM refiner uses them.
	Candidates []string
}

// Result is the outcome of detection.
type Result struct {
	Code       string  // empty only for correct answers
	Classifier string  // which rule or refiner produced Code
	Generic    bool    // Code is the incorrect_<type> fallback
	Confidence float64 // 1 for rules, model-reported for the refiner
	Reasoning  string  // refiner explanation, empty for rules
}

// GenericCode is the fallback code for a wrong answer with no specific
// pattern.
func GenericCode(t question.Type) string {
	name := strings.ToLower(string(t))
	if name == "" {
		name = "unknown"
	}
	return "incorrect_" + name
}
