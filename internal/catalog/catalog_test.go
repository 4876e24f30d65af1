package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/abhisek/adaptly/internal/circuit"
	"github.com/abhisek/adaptly/internal/question"
	"github.com/abhisek/adaptly/internal/store"
)

const sampleCatalog = `[
	{"id": "q1", "microSkillId": "ms1", "type": "mcq", "difficulty": "easy", "sortOrder": 1,
	 "questionText": "2 + 2?", "options": ["3", "4", "5"], "correctAnswerIndex": 1,
	 "adaptiveConfig": {"misconceptionByOption": {"0": "off_by_one"}}},
	{"id": "q2", "type": "textInput", "difficulty": "medium", "sortOrder": 2,
	 "questionText": "10 + 5?", "correctAnswerText": "15",
	 "adaptiveConfig": {"misconceptionCode": "place_value_shift"}}
]`

func TestLoadJSON(t *testing.T) {
	docs, err := LoadJSON(strings.NewReader(sampleCatalog), "ms1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "ms1", docs[1].MicroskillID, "default microskill applied")

	wrapped, err := LoadJSON(strings.NewReader(`{"questions": `+sampleCatalog+`}`), "ms1")
	require.NoError(t, err)
	assert.Len(t, wrapped, 2)
}

func TestLoadJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `[{"id": "q1", "microSkillId": "m", "type": "essay"}]`},
		{"missing id", `[{"microSkillId": "m", "type": "mcq"}]`},
		{"bad index type", `[{"id": "q1", "microSkillId": "m", "type": "mcq", "correctAnswerIndex": "one"}]`},
		{"no microskill", `[{"id": "q1", "type": "textInput", "correctAnswerText": "1"}]`},
		{"bad adaptive config", `[{"id": "q1", "microSkillId": "m", "type": "mcq", "adaptiveConfig": {"conceptTags": "x"}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJSON(strings.NewReader(tt.body), "")
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Len(t, verr.Problems, 1)
		})
	}

	_, err := LoadJSON(strings.NewReader(`not json`), "")
	assert.Error(t, err)
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStoreSource_RoundTrip(t *testing.T) {
	ctx := t.Context()
	src := NewStoreSource(openStore(t))

	docs, err := LoadJSON(strings.NewReader(sampleCatalog), "ms1")
	require.NoError(t, err)
	n, err := Import(ctx, src, docs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	qs, err := src.Questions(ctx, "ms1")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "q1", qs[0].ID)
	assert.Equal(t, question.Medium, qs[1].Difficulty)
	assert.Equal(t, []string{"off_by_one", "place_value_shift"}, Codes(qs))

	v, err := question.DecodeAnswer(qs[0], []byte(`1`))
	require.NoError(t, err)
	assert.True(t, question.Grade(qs[0], v))
}

func TestImport_RejectsDuplicates(t *testing.T) {
	docs := []question.Document{{ID: "a", Type: question.TypeMCQ}, {ID: "a", Type: question.TypeMCQ}}
	_, err := Import(t.Context(), NewStoreSource(openStore(t)), docs)
	assert.ErrorContains(t, err, "duplicate")
}

type failingSource struct{ calls int }

func (f *failingSource) Questions(context.Context, string) ([]*question.Question, error) {
	f.calls++
	return nil, errors.New("backend down")
}

func TestGuarded_OpensAfterFailures(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	br := circuit.New("catalog", circuit.Config{Threshold: 2, Cooldown: time.Minute}, circuit.ClockFunc(func() time.Time { return now }))
	inner := &failingSource{}
	g := Guard(inner, br)

	for i := 0; i < 2; i++ {
		_, err := g.Questions(t.Context(), "ms")
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuit.ErrOpen)
	}
	_, err := g.Questions(t.Context(), "ms")
	assert.ErrorIs(t, err, circuit.ErrOpen)
	assert.Equal(t, 2, inner.calls, "open breaker short-circuits")
}

func TestStatic(t *testing.T) {
	s := NewStatic(&question.Question{ID: "a", MicroskillID: "m"}, &question.Question{ID: "b", MicroskillID: "m"})
	qs, err := s.Questions(t.Context(), "m")
	require.NoError(t, err)
	assert.Len(t, qs, 2)
	qs, _ = s.Questions(t.Context(), "other")
	assert.Empty(t, qs)
}

func TestImportXLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"id", "type", "difficulty", "questionText", "options", "correctAnswerIndex", "adaptiveConfig", "ignored"},
		{"x1", "mcq", "easy", "Pick 4", "3|4|5", "1", `{"conceptTags": ["addition"]}`, "zzz"},
		{"x2", "textInput", "hard", "Type 12", "", "", "", ""},
		{"", "", "", "", "", "", "", ""},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	docs, err := ImportXLSX(XLSXConfig{Path: path, Microskill: "ms9"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "ms9", docs[0].MicroskillID)
	require.NotNil(t, docs[0].CorrectAnswerIndex)
	assert.Equal(t, 1, *docs[0].CorrectAnswerIndex)
	assert.Len(t, docs[0].Options, 3)

	q, err := question.FromDocument(docs[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"addition"}, q.ConceptTags())
}

func TestImportXLSX_BadRow(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"id", "type", "sortOrder"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"x1", "mcq", "first"}))
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, f.SaveAs(path))

	_, err := ImportXLSX(XLSXConfig{Path: path, Microskill: "m"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems[0], "row 2")
}

func TestDocumentBSONRoundTrip(t *testing.T) {
	docs, err := LoadJSON(strings.NewReader(sampleCatalog), "ms1")
	require.NoError(t, err)

	d, err := documentToBSON(docs[0])
	require.NoError(t, err)
	d = append(d, bson.E{Key: "_id", Value: bson.NewObjectID()})
	raw, err := bson.Marshal(d)
	require.NoError(t, err)

	back, err := documentFromBSON(raw)
	require.NoError(t, err)
	assert.Equal(t, docs[0].ID, back.ID)
	assert.Equal(t, *docs[0].CorrectAnswerIndex, *back.CorrectAnswerIndex)
	assert.JSONEq(t, string(docs[0].AdaptiveConfig), string(back.AdaptiveConfig))

	q, err := question.FromDocument(back)
	require.NoError(t, err)
	assert.Equal(t, "off_by_one", q.Config.OptionCode(0))
}
