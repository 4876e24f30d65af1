package diagnosis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/abhisek/adaptly/internal/question"
)

func mustQuestion(t *testing.T, doc string) *question.Question {
	t.Helper()
	var d question.Document
	if err := json.Unmarshal([]byte(doc), &d); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	q, err := question.FromDocument(d)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	return q
}

func wrongInput(t *testing.T, doc, answer string) *Input {
	t.Helper()
	q := mustQuestion(t, doc)
	v, err := question.DecodeAnswer(q, json.RawMessage(answer))
	if err != nil {
		t.Fatalf("DecodeAnswer(%s): %v", answer, err)
	}
	if question.Grade(q, v) {
		t.Fatalf("answer %s unexpectedly correct", answer)
	}
	return &Input{Question: q, Answer: v}
}

func TestDetect_Rules(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		answer      string
		wantCode    string
		wantRule    string
		wantGeneric bool
	}{
		{"option map", `{"id":"q","type":"mcq","correctAnswerIndex":0,"adaptiveConfig":{"misconceptionByOption":{"2":"adds_denominators"}}}`, `2`, "adds_denominators", "choice", false},
		{"legacy option map", `{"id":"q","type":"mcq","correctAnswerIndex":0,"adaptiveConfig":{"misconception_map":{"1":"reverses_digits"}}}`, `1`, "reverses_digits", "choice", false},
		{"option object code", `{"id":"q","type":"mcq","correctAnswerIndex":0,"options":["7",{"label":"8","misconceptionCode":"counts_on"}]}`, `1`, "counts_on", "choice", false},
		{"per-option fallback", `{"id":"q","type":"imageChoice","correctAnswerIndex":0}`, `3`, "option_3_misconception", "choice", false},
		{"unanswered", `{"id":"q","type":"mcq","correctAnswerIndex":0}`, `null`, "mcq_unanswered", "choice", false},
		{"unanswered with config", `{"id":"q","type":"mcq","correctAnswerIndex":0,"adaptiveConfig":{"misconceptionCode":"guessing"}}`, `null`, "guessing", "choice", false},
		{"multi select default", `{"id":"q","type":"mcq","isMultiSelect":true,"correctAnswerIndices":[0,1]}`, `[0]`, "mcq_multi_select_error", "choice", false},
		{"multi select option code", `{"id":"q","type":"mcq","isMultiSelect":true,"correctAnswerIndices":[0,1],"adaptiveConfig":{"misconceptionByOption":{"3":"picks_largest"}}}`, `[0,3]`, "picks_largest", "choice", false},
		{"off by one", `{"id":"q","type":"textInput","correctAnswerText":"12"}`, `"13"`, "off_by_one", "numeric", false},
		{"place value", `{"id":"q","type":"fillInTheBlank","correctAnswerText":"{\"a\":\"40\"}"}`, `{"a":"30"}`, "place_value_shift", "numeric", false},
		{"off by one large number", `{"id":"q","type":"textInput","correctAnswerText":"1000001"}`, `1000000`, "off_by_one", "numeric", false},
		{"place value large blank", `{"id":"q","type":"fillInTheBlank","correctAnswerText":"{\"a\":\"2000010\"}"}`, `{"a":2000000}`, "place_value_shift", "numeric", false},
		{"overestimate", `{"id":"q","type":"measure","correctAnswerText":"5 cm"}`, `"8"`, "overestimate", "numeric", false},
		{"underestimate", `{"id":"q","type":"textInput","correctAnswerText":"50"}`, `"20"`, "underestimate", "numeric", false},
		{"configured", `{"id":"q","type":"sorting","correctAnswerText":"[\"a\",\"b\"]","adaptiveConfig":{"misconceptionCode":"order_confusion"}}`, `["b","a"]`, "order_confusion", "configured", false},
		{"generic", `{"id":"q","type":"dragAndDrop","dragItems":[{"id":"x","targetGroupId":"even"}]}`, `{"x":"odd"}`, "incorrect_draganddrop", "fallback", true},
		{"non numeric text", `{"id":"q","type":"textInput","correctAnswerText":"cat"}`, `"dog"`, "incorrect_textinput", "fallback", true},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(context.Background(), wrongInput(t, tt.doc, tt.answer))
			if got == nil {
				t.Fatal("Detect returned nil for a wrong answer")
			}
			if got.Code != tt.wantCode || got.Classifier != tt.wantRule || got.Generic != tt.wantGeneric {
				t.Errorf("got %+v, want code=%s rule=%s generic=%v", got, tt.wantCode, tt.wantRule, tt.wantGeneric)
			}
		})
	}
}

func TestDetect_CorrectAnswerIsNil(t *testing.T) {
	q := mustQuestion(t, `{"id":"q","type":"mcq","correctAnswerIndex":1}`)
	if got := NewDetector().Detect(context.Background(), &Input{Question: q, Answer: 1.0, Correct: true}); got != nil {
		t.Errorf("Detect = %+v, want nil", got)
	}
}

func TestAnswerText_PlainDecimal(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{1e6, "1000000"},
		{2.5e7, "25000000"},
		{0.25, "0.25"},
		{map[string]any{"b": 10.0, "a": 1e6}, "100000010"},
		{json.Number("3000000"), "3000000"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := answerText(tt.in); got != tt.want {
			t.Errorf("answerText(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenericCode(t *testing.T) {
	if got := GenericCode(question.TypeShadeGrid); got != "incorrect_shadegrid" {
		t.Errorf("GenericCode = %q", got)
	}
	if got := GenericCode(""); got != "incorrect_unknown" {
		t.Errorf("GenericCode(empty) = %q", got)
	}
}
