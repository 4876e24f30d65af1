package store

import (
	"context"
	"fmt"
	"math"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableQuestions      = "questions"
	tableSkillStates    = "skill_states"
	tableSessionStates  = "session_states"
	tableAttempts       = "attempt_events"
	tableMisconceptions = "misconception_events"
	tableLLMRequests    = "llm_request_events"
	tableSequence       = "global_sequence"
)

const textSize = math.MaxInt32

var (
	questionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 191},
		{Name: "microskill_id", Type: field.TypeString, Size: 191},
		{Name: "type", Type: field.TypeString},
		{Name: "difficulty", Type: field.TypeString},
		{Name: "sort_order", Type: field.TypeInt, Default: 0},
		{Name: "document", Type: field.TypeBytes},
		{Name: "updated_at", Type: field.TypeTime},
	}
	questionsTable = &schema.Table{
		Name:       tableQuestions,
		Columns:    questionsColumns,
		PrimaryKey: []*schema.Column{questionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "question_microskill_id", Columns: []*schema.Column{questionsColumns[1]}},
		},
	}

	skillStatesColumns = []*schema.Column{
		{Name: "student_id", Type: field.TypeString, Size: 191},
		{Name: "microskill_id", Type: field.TypeString, Size: 191},
		{Name: "mastery", Type: field.TypeFloat64},
		{Name: "confidence", Type: field.TypeFloat64},
		{Name: "streak", Type: field.TypeInt},
		{Name: "band", Type: field.TypeString},
		{Name: "attempts_total", Type: field.TypeInt},
		{Name: "correct_total", Type: field.TypeInt},
		{Name: "avg_latency_ms", Type: field.TypeInt},
		{Name: "status", Type: field.TypeString},
		{Name: "last_attempt_at", Type: field.TypeTime, Nullable: true},
		{Name: "next_review_at", Type: field.TypeTime, Nullable: true},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "version", Type: field.TypeInt64},
	}
	skillStatesTable = &schema.Table{
		Name:       tableSkillStates,
		Columns:    skillStatesColumns,
		PrimaryKey: []*schema.Column{skillStatesColumns[0], skillStatesColumns[1]},
		Indexes: []*schema.Index{
			{Name: "skillstate_next_review_at", Columns: []*schema.Column{skillStatesColumns[11]}},
		},
	}

	sessionStatesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 191},
		{Name: "student_id", Type: field.TypeString, Size: 191},
		{Name: "microskill_id", Type: field.TypeString, Size: 191},
		{Name: "phase", Type: field.TypeString},
		{Name: "target_streak", Type: field.TypeInt},
		{Name: "streak", Type: field.TypeInt},
		{Name: "miss_streak", Type: field.TypeInt},
		{Name: "asked", Type: field.TypeInt},
		{Name: "correct", Type: field.TypeInt},
		{Name: "active_difficulty", Type: field.TypeString},
		{Name: "last_question_id", Type: field.TypeString},
		{Name: "recent_question_ids", Type: field.TypeBytes},
		{Name: "remediation_recent_ids", Type: field.TypeBytes},
		{Name: "remediation_remaining", Type: field.TypeInt},
		{Name: "active_misconception", Type: field.TypeString},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "version", Type: field.TypeInt64},
	}
	sessionStatesTable = &schema.Table{
		Name:       tableSessionStates,
		Columns:    sessionStatesColumns,
		PrimaryKey: []*schema.Column{sessionStatesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "sessionstate_student_id_microskill_id", Columns: []*schema.Column{sessionStatesColumns[1], sessionStatesColumns[2]}},
		},
	}

	attemptsColumns = []*schema.Column{
		{Name: "seq", Type: field.TypeInt64},
		{Name: "session_id", Type: field.TypeString, Size: 191},
		{Name: "student_id", Type: field.TypeString, Size: 191},
		{Name: "microskill_id", Type: field.TypeString, Size: 191},
		{Name: "question_id", Type: field.TypeString, Size: 191},
		{Name: "attempt_id", Type: field.TypeString, Size: 191},
		{Name: "is_correct", Type: field.TypeBool},
		{Name: "response_ms", Type: field.TypeInt},
		{Name: "attempts_on_question", Type: field.TypeInt},
		{Name: "hint_used", Type: field.TypeBool},
		{Name: "selected_difficulty", Type: field.TypeString},
		{Name: "concept_tags", Type: field.TypeBytes},
		{Name: "misconception_code", Type: field.TypeString},
		{Name: "correct_payload", Type: field.TypeBytes},
		{Name: "created_at", Type: field.TypeTime},
	}
	attemptsTable = &schema.Table{
		Name:       tableAttempts,
		Columns:    attemptsColumns,
		PrimaryKey: []*schema.Column{attemptsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "attemptevent_student_id_microskill_id_created_at", Columns: []*schema.Column{attemptsColumns[2], attemptsColumns[3], attemptsColumns[14]}},
			{Name: "attemptevent_session_id_question_id_attempt_id", Columns: []*schema.Column{attemptsColumns[1], attemptsColumns[4], attemptsColumns[5]}},
		},
	}

	misconceptionsColumns = []*schema.Column{
		{Name: "seq", Type: field.TypeInt64},
		{Name: "session_id", Type: field.TypeString, Size: 191},
		{Name: "student_id", Type: field.TypeString, Size: 191},
		{Name: "microskill_id", Type: field.TypeString, Size: 191},
		{Name: "question_id", Type: field.TypeString},
		{Name: "code", Type: field.TypeString},
		{Name: "classifier", Type: field.TypeString},
		{Name: "confidence", Type: field.TypeFloat64},
		{Name: "created_at", Type: field.TypeTime},
	}
	misconceptionsTable = &schema.Table{
		Name:       tableMisconceptions,
		Columns:    misconceptionsColumns,
		PrimaryKey: []*schema.Column{misconceptionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "misconceptionevent_student_id_microskill_id", Columns: []*schema.Column{misconceptionsColumns[2], misconceptionsColumns[3]}},
		},
	}

	llmRequestsColumns = []*schema.Column{
		{Name: "seq", Type: field.TypeInt64},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "session_id", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: textSize},
		{Name: "request_body", Type: field.TypeString, Size: textSize},
		{Name: "response_body", Type: field.TypeString, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
	}
	llmRequestsTable = &schema.Table{
		Name:       tableLLMRequests,
		Columns:    llmRequestsColumns,
		PrimaryKey: []*schema.Column{llmRequestsColumns[0]},
	}

	sequenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "next_val", Type: field.TypeInt64},
	}
	sequenceTable = &schema.Table{
		Name:       tableSequence,
		Columns:    sequenceColumns,
		PrimaryKey: []*schema.Column{sequenceColumns[0]},
	}

	tables = []*schema.Table{
		questionsTable,
		skillStatesTable,
		sessionStatesTable,
		attemptsTable,
		misconceptionsTable,
		llmRequestsTable,
		sequenceTable,
	}
)

func (s *Store) migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(s.drv)
	if err != nil {
		return fmt.Errorf("new migrate: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return err
	}
	return s.seedSequence(ctx)
}
