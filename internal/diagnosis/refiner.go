package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/adaptly/internal/llm"
)

// RefinerConfig tunes model requests.
type RefinerConfig struct {
	MaxTokens   int
	Temperature float64
}

func DefaultRefinerConfig() RefinerConfig {
	return RefinerConfig{MaxTokens: 256, Temperature: 0.2}
}

// Refiner asks a model to pick a specific misconception code when the
// rules could only produce the generic fallback.
type Refiner struct {
	provider llm.Provider
	cfg      RefinerConfig
}

func NewRefiner(provider llm.Provider, cfg RefinerConfig) *Refiner {
	return &Refiner{provider: provider, cfg: cfg}
}

type refinement struct {
	Code       *string `json:"misconception_code"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Refine returns a Result naming one of in.Candidates, or nil when the
// model declined or answered with a code outside the list.
func (r *Refiner) Refine(ctx context.Context, in *Input) (*Result, error) {
	if len(in.Candidates) == 0 {
		return nil, nil
	}
	ctx = llm.WithPurpose(ctx, "misconception_refine")

	prompt, err := refinePrompt(in)
	if err != nil {
		return nil, fmt.Errorf("build refine prompt: %w", err)
	}

	resp, err := r.provider.Generate(ctx, llm.Request{
		System:      refineSystemPrompt,
		Messages:    llm.UserMessage(prompt),
		Schema:      RefinementSchema,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("refine: %w", err)
	}

	var out refinement
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("decode refinement: %w", err)
	}
	if out.Code == nil {
		return nil, nil
	}
	code, ok := matchCandidate(*out.Code, in.Candidates)
	if !ok {
		return nil, nil
	}
	return &Result{
		Code:       code,
		Classifier: "llm",
		Confidence: out.Confidence,
		Reasoning:  out.Reasoning,
	}, nil
}

func matchCandidate(code string, candidates []string) (string, bool) {
	code = strings.TrimSpace(code)
	for _, c := range candidates {
		if strings.EqualFold(c, code) {
			return c, true
		}
	}
	return "", false
}

const refineSystemPrompt = `You diagnose wrong answers from students practising a single math microskill.
Pick the one misconception code from the candidate list that best explains the wrong answer.
Return null for misconception_code if no candidate clearly fits. Never invent a code.
Keep reasoning to one sentence.`

var refineTemplate = template.Must(template.New("refine").Parse(`Microskill: {{.Microskill}}
Question type: {{.Type}}
Question: {{.Text}}
Correct answer: {{.Expected}}
Student answer: {{.Given}}

Candidate misconception codes:
{{range .Candidates}}- {{.}}
{{end}}`))

func refinePrompt(in *Input) (string, error) {
	q := in.Question
	data := struct {
		Microskill, Type, Text, Expected, Given string
		Candidates                              []string
	}{
		Microskill: q.MicroskillID,
		Type:       string(q.Type),
		Text:       q.Text,
		Expected:   q.AnswerText,
		Given:      promptAnswer(in.Answer),
		Candidates: in.Candidates,
	}
	var buf bytes.Buffer
	if err := refineTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func promptAnswer(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return answerText(v)
	}
	return string(b)
}
