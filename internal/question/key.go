package question

// AnswerKey is the canonical answer for a question. The concrete type is
// fixed by the question type when the document is decoded.
type AnswerKey interface {
	isAnswerKey()
}

// ChoiceKey is a single option index, or an index set when Multi is set.
type ChoiceKey struct {
	Index   int
	Indices []int
	Multi   bool
}

// TextKey is free text compared trimmed and case-insensitively.
type TextKey struct {
	Text string
}

// FieldsKey maps blank ids to their expected values.
type FieldsKey struct {
	Fields map[string]string
}

// PlacementKey maps drag-item ids to their target group ids.
type PlacementKey struct {
	Targets map[string]string
}

// OrderKey is the expected sequence of item ids.
type OrderKey struct {
	Order []string
}

// WordKey is a word spelled from a letter bank.
type WordKey struct {
	Word string
}

// MeasureKey is a numeric reading.
type MeasureKey struct {
	Value float64
}

// ShadeKey is the number of cells that must be shaded.
type ShadeKey struct {
	Target float64
}

// InvalidKey marks a question whose answer key could not be decoded.
type InvalidKey struct {
	Reason string
}

func (ChoiceKey) isAnswerKey()    {}
func (TextKey) isAnswerKey()      {}
func (FieldsKey) isAnswerKey()    {}
func (PlacementKey) isAnswerKey() {}
func (OrderKey) isAnswerKey()     {}
func (WordKey) isAnswerKey()      {}
func (MeasureKey) isAnswerKey()   {}
func (ShadeKey) isAnswerKey()     {}
func (InvalidKey) isAnswerKey()   {}
