package question

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// answerShapes are the JSON schemas a submitted answer must satisfy, by
// question type. They reject payloads that could never be graded, not
// wrong answers.
var answerShapes = map[string]string{
	"choice":   `{"type": ["number", "string", "null"]}`,
	"multi":    `{"type": ["array", "null"], "items": {"type": ["number", "string"]}}`,
	"text":     `{"type": ["string", "number", "null"]}`,
	"fields":   `{"type": ["object", "null"], "additionalProperties": {"type": ["string", "number", "null"]}}`,
	"order":    `{"type": ["array", "null"], "items": {"type": ["string", "number"]}}`,
	"word":     `{"type": ["string", "array", "null"], "items": {"type": "string"}}`,
	"shade":    `{"type": ["number", "string", "array", "object", "null"]}`,
	"anything": `{}`,
}

// shapeCache caches compiled answer schemas by shape name.
var shapeCache sync.Map // map[string]*jsonschema.Schema

func shapeFor(q *Question) string {
	switch q.Type {
	case TypeMCQ, TypeImageChoice:
		if q.Doc.IsMultiSelect {
			return "multi"
		}
		return "choice"
	case TypeTextInput, TypeMeasure:
		return "text"
	case TypeFillInTheBlank, TypeGridArithmetic, TypeDragAndDrop:
		return "fields"
	case TypeSorting:
		return "order"
	case TypeFourPicsOneWord:
		return "word"
	case TypeShadeGrid:
		return "shade"
	default:
		return "anything"
	}
}

func checkShape(q *Question, v any) error {
	name := shapeFor(q)
	compiled, err := compiledShape(name)
	if err != nil {
		return fmt.Errorf("compile %s shape: %w", name, err)
	}
	if err := compiled.Validate(v); err != nil {
		return err
	}
	return nil
}

func compiledShape(name string) (*jsonschema.Schema, error) {
	if cached, ok := shapeCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	var def any
	if err := json.Unmarshal([]byte(answerShapes[name]), &def); err != nil {
		return nil, fmt.Errorf("parse shape: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://answer/%s.json", name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	shapeCache.Store(name, compiled)
	return compiled, nil
}
