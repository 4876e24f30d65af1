package diagnosis

import "github.com/abhisek/adaptly/internal/llm"

// RefinementSchema is the structured output the refiner asks for.
var RefinementSchema = &llm.Schema{
	Name:        "misconception-refinement",
	Description: "Choice of one known misconception code for a wrong answer, or null",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"misconception_code": map[string]any{
				"type":        []any{"string", "null"},
				"description": "One code from the candidate list, or null if none fits",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "How well the wrong answer matches the chosen code",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "One sentence",
			},
		},
		"required":             []any{"misconception_code", "confidence", "reasoning"},
		"additionalProperties": false,
	},
}
