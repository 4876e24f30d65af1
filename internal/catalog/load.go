package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/adaptly/internal/question"
)

// documentSchema is the shape of an authored question document.
const documentSchema = `{
	"type": "object",
	"required": ["id", "type"],
	"properties": {
		"id":                   {"type": "string", "minLength": 1},
		"microSkillId":         {"type": "string"},
		"type":                 {"enum": ["mcq", "imageChoice", "textInput", "fillInTheBlank", "gridArithmetic", "dragAndDrop", "sorting", "fourPicsOneWord", "measure", "shadeGrid"]},
		"difficulty":           {"type": "string"},
		"sortOrder":            {"type": "integer"},
		"complexity":           {"type": "number"},
		"questionText":         {"type": "string"},
		"solution":             {"type": "string"},
		"options":              {"type": "array"},
		"dragItems":            {"type": "array", "items": {"type": "object", "required": ["id"]}},
		"isMultiSelect":        {"type": "boolean"},
		"correctAnswerIndex":   {"type": ["integer", "null"]},
		"correctAnswerIndices": {"type": "array", "items": {"type": "integer"}},
		"correctAnswerText":    {"type": "string"},
		"adaptiveConfig":       {"type": ["object", "null"]}
	}
}`

var (
	docSchemaOnce sync.Once
	docSchema     *jsonschema.Schema
	docSchemaErr  error
)

func compiledDocumentSchema() (*jsonschema.Schema, error) {
	docSchemaOnce.Do(func() {
		def, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchema))
		if err != nil {
			docSchemaErr = fmt.Errorf("parse document schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://catalog/question.json"
		if err := c.AddResource(url, def); err != nil {
			docSchemaErr = fmt.Errorf("add document schema: %w", err)
			return
		}
		docSchema, docSchemaErr = c.Compile(url)
	})
	return docSchema, docSchemaErr
}

// ValidationError lists every document that failed to load.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d invalid question(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// LoadJSON reads a JSON array of question documents, or an object with a
// "questions" array. Documents without a microSkillId take defaultMicroskill.
// Every document is checked against the document schema and must decode.
func LoadJSON(r io.Reader, defaultMicroskill string) ([]question.Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var items []json.RawMessage
	trimmed := bytes.TrimSpace(raw)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		var wrapper struct {
			Questions []json.RawMessage `json:"questions"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		items = wrapper.Questions
	} else if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	docs := make([]question.Document, 0, len(items))
	verr := &ValidationError{}
	for i, item := range items {
		doc, err := validateDocument(item, defaultMicroskill)
		if err != nil {
			verr.Problems = append(verr.Problems, fmt.Sprintf("#%d: %v", i, err))
			continue
		}
		docs = append(docs, doc)
	}
	if len(verr.Problems) > 0 {
		return nil, verr
	}
	return docs, nil
}

func validateDocument(raw json.RawMessage, defaultMicroskill string) (question.Document, error) {
	compiled, err := compiledDocumentSchema()
	if err != nil {
		return question.Document{}, err
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return question.Document{}, err
	}
	if err := compiled.Validate(v); err != nil {
		return question.Document{}, fmt.Errorf("schema: %w", err)
	}

	var doc question.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return question.Document{}, err
	}
	if doc.MicroskillID == "" {
		doc.MicroskillID = defaultMicroskill
	}
	if doc.MicroskillID == "" {
		return question.Document{}, fmt.Errorf("question %s: microSkillId is required", doc.ID)
	}
	if _, err := question.FromDocument(doc); err != nil {
		return question.Document{}, err
	}
	return doc, nil
}

// Import validates docs and writes them to sink.
func Import(ctx context.Context, sink Sink, docs []question.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	seen := map[string]bool{}
	for _, d := range docs {
		if seen[d.ID] {
			return 0, fmt.Errorf("duplicate question id %s", d.ID)
		}
		seen[d.ID] = true
	}
	if err := sink.Put(ctx, docs); err != nil {
		return 0, fmt.Errorf("import questions: %w", err)
	}
	return len(docs), nil
}
