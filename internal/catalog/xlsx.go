package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/abhisek/adaptly/internal/question"
)

// XLSXConfig describes a spreadsheet of questions. The first row holds
// column headers named after document fields (id, microSkillId, type,
// difficulty, sortOrder, questionText, options, correctAnswerIndex,
// correctAnswerIndices, correctAnswerText, isMultiSelect, solution,
// adaptiveConfig); unknown headers are ignored.
type XLSXConfig struct {
	Path  string
	Sheet string // defaults to the first sheet

	// Microskill is used for rows without a microSkillId.
	Microskill string
}

// ImportXLSX reads question documents from a spreadsheet. Options are a
// JSON array or a "|"-separated list; index lists are comma separated;
// adaptiveConfig is JSON.
func ImportXLSX(cfg XLSXConfig) ([]question.Document, error) {
	f, err := excelize.OpenFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := cfg.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := header["id"]; !ok {
		return nil, fmt.Errorf("sheet %s: missing id column", sheet)
	}

	var (
		docs []question.Document
		verr = &ValidationError{}
	)
	for i, row := range rows[1:] {
		cell := func(name string) string {
			idx, ok := header[strings.ToLower(name)]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if cell("id") == "" {
			continue
		}
		raw, err := rowDocument(cell)
		if err != nil {
			verr.Problems = append(verr.Problems, fmt.Sprintf("row %d: %v", i+2, err))
			continue
		}
		doc, err := validateDocument(raw, cfg.Microskill)
		if err != nil {
			verr.Problems = append(verr.Problems, fmt.Sprintf("row %d: %v", i+2, err))
			continue
		}
		docs = append(docs, doc)
	}
	if len(verr.Problems) > 0 {
		return nil, verr
	}
	return docs, nil
}

// rowDocument builds the JSON document for one row so it goes through the
// same validation as JSON imports.
func rowDocument(cell func(string) string) (json.RawMessage, error) {
	doc := map[string]any{
		"id":   cell("id"),
		"type": cell("type"),
	}
	for _, name := range []string{"microSkillId", "difficulty", "questionText", "correctAnswerText", "solution"} {
		if v := cell(name); v != "" {
			doc[name] = v
		}
	}

	if v := cell("sortOrder"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("sortOrder %q: %w", v, err)
		}
		doc["sortOrder"] = n
	}
	if v := cell("correctAnswerIndex"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("correctAnswerIndex %q: %w", v, err)
		}
		doc["correctAnswerIndex"] = n
	}
	if v := cell("correctAnswerIndices"); v != "" {
		var idx []int
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("correctAnswerIndices %q: %w", v, err)
			}
			idx = append(idx, n)
		}
		doc["correctAnswerIndices"] = idx
	}
	if v := cell("isMultiSelect"); v != "" {
		b, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return nil, fmt.Errorf("isMultiSelect %q: %w", v, err)
		}
		doc["isMultiSelect"] = b
	}
	if v := cell("options"); v != "" {
		if strings.HasPrefix(v, "[") {
			var opts []any
			if err := json.Unmarshal([]byte(v), &opts); err != nil {
				return nil, fmt.Errorf("options: %w", err)
			}
			doc["options"] = opts
		} else {
			var opts []string
			for _, o := range strings.Split(v, "|") {
				opts = append(opts, strings.TrimSpace(o))
			}
			doc["options"] = opts
		}
	}
	if v := cell("adaptiveConfig"); v != "" {
		var cfg map[string]any
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return nil, fmt.Errorf("adaptiveConfig: %w", err)
		}
		doc["adaptiveConfig"] = cfg
	}
	return json.Marshal(doc)
}
