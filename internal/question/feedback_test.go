package question

import (
	"math/rand/v2"
	"testing"
)

func TestBuildFeedback_Choice(t *testing.T) {
	q := mustQuestion(t, `{"id":"q","type":"mcq","correctAnswerIndex":1,"solution":"count up","options":["three",{"label":"four"},"<svg/>"]}`)
	fb := BuildFeedback(q)
	if fb.CorrectAnswerDisplay != "four" {
		t.Errorf("display = %q, want four", fb.CorrectAnswerDisplay)
	}
	if len(fb.CorrectOptionIndices) != 1 || fb.CorrectOptionIndices[0] != 1 {
		t.Errorf("indices = %v", fb.CorrectOptionIndices)
	}
	if fb.Solution != "count up" {
		t.Errorf("solution = %q", fb.Solution)
	}
}

func TestBuildFeedback_ImageOptionFallsBack(t *testing.T) {
	q := mustQuestion(t, `{"id":"q","type":"imageChoice","isMultiSelect":true,"correctAnswerIndices":[0,2],"options":["https://img/a.png","b","/img/c.png"]}`)
	fb := BuildFeedback(q)
	if fb.CorrectAnswerDisplay != "Option 1, Option 3" {
		t.Errorf("display = %q", fb.CorrectAnswerDisplay)
	}
}

func TestBuildFeedback_ArithmeticLayout(t *testing.T) {
	q := mustQuestion(t, `{"id":"q","type":"gridArithmetic","correctAnswerText":"{\"c0\":\"4\",\"c1\":\"2\"}",
		"parts":[{"type":"arithmeticLayout","layout":{"rows":[{"kind":"operand"},{"kind":"answer","prefix":"=","cells":[{"id":"c0"},{"id":"c1"}]}]}}]}`)
	if got := BuildFeedback(q).CorrectAnswerDisplay; got != "=42" {
		t.Errorf("display = %q, want =42", got)
	}
}

func TestBuildFeedback_FieldsSorted(t *testing.T) {
	q := mustQuestion(t, `{"id":"q","type":"fillInTheBlank","correctAnswerText":"{\"b\":\"2\",\"a\":\"1\"}"}`)
	if got := BuildFeedback(q).CorrectAnswerDisplay; got != "a: 1, b: 2" {
		t.Errorf("display = %q", got)
	}
}

func TestToPublic_HidesTargets(t *testing.T) {
	q := mustQuestion(t, `{"id":"q","type":"dragAndDrop","dragItems":[{"id":"x","label":"2","targetGroupId":"even"}]}`)
	p := ToPublic(q, nil)
	if len(p.DragItems) != 1 || p.DragItems[0].ID != "x" {
		t.Fatalf("drag items = %+v", p.DragItems)
	}
	if string(p.AdaptiveConfig) != "null" {
		t.Errorf("adaptive config = %s, want null", p.AdaptiveConfig)
	}
}

func TestToPublic_LetterBank(t *testing.T) {
	q := mustQuestion(t, `{"id":"q","type":"fourPicsOneWord","correctAnswerText":"Ca-ke"}`)
	p := ToPublic(q, rand.New(rand.NewPCG(1, 2)))
	if p.WordLength == nil || *p.WordLength != 4 {
		t.Fatalf("word length = %v", p.WordLength)
	}
	counts := map[string]int{}
	for _, l := range p.LetterBank {
		counts[l]++
	}
	for _, l := range []string{"C", "A", "K", "E"} {
		if counts[l] != 1 {
			t.Errorf("letter %s count = %d", l, counts[l])
		}
	}
}

func TestMeasureTarget(t *testing.T) {
	q := mustQuestion(t, `{"id":"q","type":"measure","correctAnswerText":"9","adaptiveConfig":{"line_length":"6 units"}}`)
	got, ok := MeasureTarget(q)
	if !ok || got != 6 {
		t.Errorf("MeasureTarget = %v, %v; want 6", got, ok)
	}
}

func TestToPublic_Nil(t *testing.T) {
	if ToPublic(nil, nil) != nil {
		t.Error("expected nil")
	}
}
