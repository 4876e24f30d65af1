package question

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Feedback is shown to the learner after grading.
type Feedback struct {
	Solution             string `json:"solution"`
	CorrectAnswerDisplay string `json:"correctAnswerDisplay"`
	CorrectOptionIndices []int  `json:"correctOptionIndices"`
}

var urlPattern = regexp.MustCompile(`(?i)^https?://`)

// BuildFeedback renders the correct answer for display.
func BuildFeedback(q *Question) Feedback {
	fb := Feedback{
		Solution:             q.Solution,
		CorrectOptionIndices: []int{},
	}

	switch k := q.Key.(type) {
	case ChoiceKey:
		if k.Multi {
			labels := make([]string, len(k.Indices))
			for i, idx := range k.Indices {
				labels[i] = q.optionLabel(idx)
			}
			fb.CorrectAnswerDisplay = strings.Join(labels, ", ")
			fb.CorrectOptionIndices = append(fb.CorrectOptionIndices, k.Indices...)
		} else {
			if k.Index >= 0 {
				fb.CorrectAnswerDisplay = q.optionLabel(k.Index)
			}
			fb.CorrectOptionIndices = append(fb.CorrectOptionIndices, k.Index)
		}
	case FieldsKey:
		fb.CorrectAnswerDisplay = fieldsDisplay(q, k)
	default:
		fb.CorrectAnswerDisplay = q.AnswerText
	}
	return fb
}

// optionLabel returns a human label for option idx. Image-like options
// (SVG markup, URLs, paths, data URIs) fall back to "Option N".
func (q *Question) optionLabel(idx int) string {
	if idx >= 0 && idx < len(q.Options) {
		opt := q.Options[idx]
		label := strings.TrimSpace(opt.Label)
		switch {
		case opt.isObject() && label != "":
			return opt.Label
		case !opt.isObject() && label != "" && !looksLikeImage(label):
			return opt.Label
		}
	}
	return fmt.Sprintf("Option %d", idx+1)
}

func looksLikeImage(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), "<svg") ||
		urlPattern.MatchString(s) ||
		strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, "data:image/")
}

// fieldsDisplay renders the expected blanks. Arithmetic layouts print the
// answer row cells in order; everything else prints "key: value" pairs.
func fieldsDisplay(q *Question, k FieldsKey) string {
	if row, ok := answerRow(q.Doc.Parts); ok && len(row.Cells) > 0 {
		var b strings.Builder
		for i, cell := range row.Cells {
			id := cell.ID
			if id == "" {
				id = fmt.Sprintf("cell_%d", i)
			}
			b.WriteString(k.Fields[id])
		}
		return strings.TrimSpace(row.Prefix + b.String())
	}

	keys := make([]string, 0, len(k.Fields))
	for key := range k.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, key := range keys {
		pairs[i] = key + ": " + k.Fields[key]
	}
	return strings.Join(pairs, ", ")
}

type layoutRow struct {
	Kind   string `json:"kind"`
	Prefix string `json:"prefix"`
	Cells  []struct {
		ID string `json:"id"`
	} `json:"cells"`
}

func answerRow(parts json.RawMessage) (layoutRow, bool) {
	if len(parts) == 0 {
		return layoutRow{}, false
	}
	var list []struct {
		Type   string `json:"type"`
		Layout struct {
			Rows []layoutRow `json:"rows"`
		} `json:"layout"`
	}
	if err := json.Unmarshal(parts, &list); err != nil {
		return layoutRow{}, false
	}
	for _, p := range list {
		if p.Type != "arithmeticLayout" {
			continue
		}
		for _, r := range p.Layout.Rows {
			if strings.EqualFold(r.Kind, "answer") {
				return r, true
			}
		}
	}
	return layoutRow{}, false
}
