package question

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// gridGeometry is the resolved layout of a shade-grid question.
type gridGeometry struct {
	Rows, Cols int
	TotalCells int
	Fraction   *fraction
}

func resolveGrid(q *Question) gridGeometry {
	c := q.Config

	frac := questionFraction(q)
	var den float64
	switch {
	case c.Denominator.Valid:
		den = c.Denominator.Value
	case frac != nil:
		den = frac.den
	}

	orientation := strings.ToLower(firstNonEmpty(c.Orientation, c.GridOrientation, c.BarOrientation))
	mode := strings.ToLower(c.GridMode)
	if mode == "" {
		mode = "auto"
	}
	fractionBar := mode == "fractionbar" || (mode == "auto" && den > 1 && den <= 20)

	rows, cols := 0.0, 0.0
	if c.GridRows.Valid {
		rows = c.GridRows.Value
	}
	if c.GridCols.Valid {
		cols = c.GridCols.Value
	}
	switch {
	case fractionBar && den > 0:
		if orientation == "horizontal" {
			rows, cols = den, 1
		} else {
			rows, cols = 1, den
		}
	case rows == 0 || cols == 0:
		rows, cols = 10, 10
	}

	g := gridGeometry{
		Rows:     clampCells(rows, 10, 20),
		Cols:     clampCells(cols, 10, 20),
		Fraction: frac,
	}
	g.TotalCells = g.Rows * g.Cols

	model := strings.ToLower(firstNonEmpty(c.ModelType, c.VisualModel, c.ShapeModel))
	if model == "pie" || model == "fractioncircle" || model == "circlefraction" {
		segments := 10.0
		switch {
		case c.Segments.Valid:
			segments = c.Segments.Value
		case den > 0:
			segments = den
		}
		g.TotalCells = min(max(int(math.Floor(segments)), 2), 36)
	}
	return g
}

func clampCells(v, fallback float64, limit int) int {
	n := int(math.Floor(v))
	if n <= 0 {
		n = int(fallback)
	}
	return min(max(n, 1), limit)
}

// questionFraction finds the fraction a shade grid represents: the answer
// text, then the question parts, then numerator/denominator config.
func questionFraction(q *Question) *fraction {
	if f, ok := parseFraction(q.AnswerText); ok {
		return &f
	}
	if f, ok := fractionFromParts(q.Doc.Parts); ok {
		return &f
	}
	c := q.Config
	if c.Numerator.Valid && c.Denominator.Valid {
		return &fraction{num: c.Numerator.Value, den: c.Denominator.Value}
	}
	return nil
}

func fractionFromParts(raw json.RawMessage) (fraction, bool) {
	if len(raw) == 0 {
		return fraction{}, false
	}
	var parts []struct {
		Content any `json:"content"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return fraction{}, false
	}
	for _, p := range parts {
		content := stringify(p.Content)
		if f, ok := parseFraction(content); ok {
			return f, true
		}
		if m := embeddedFrac.FindStringSubmatch(content); m != nil {
			num, _ := strconv.ParseFloat(m[1], 64)
			den, _ := strconv.ParseFloat(m[2], 64)
			if den > 0 {
				return fraction{num: num, den: den}, true
			}
		}
	}
	return fraction{}, false
}

func shadeTarget(q *Question) (float64, bool) {
	c := q.Config
	if c.TargetShaded.Valid {
		return c.TargetShaded.Value, true
	}
	g := resolveGrid(q)
	if c.Numerator.Valid && c.Denominator.Valid && c.Denominator.Value > 0 {
		return math.Round(c.Numerator.Value / c.Denominator.Value * float64(g.TotalCells)), true
	}
	if g.Fraction != nil {
		return math.Round(g.Fraction.num / g.Fraction.den * float64(g.TotalCells)), true
	}
	return ParseNumber(q.AnswerText)
}
