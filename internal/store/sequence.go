package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// The global sequence orders every event across tables. Attempt,
// misconception and LLM events take their primary key from it, so "newest
// first" never depends on clock resolution and an attempt and the
// misconception it produced sort together.
//
// The counter is advanced inside the caller's transaction; the row lock
// (or SQLite's single writer) makes the read-increment atomic.

func (s *Store) seedSequence(ctx context.Context) error {
	ins := s.sql.Insert(tableSequence).
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing())
	if _, err := exec(ctx, s.db, ins); err != nil {
		return fmt.Errorf("seed sequence: %w", err)
	}
	return nil
}

// nextSeq returns the next sequence number and increments the counter.
func (s *Store) nextSeq(ctx context.Context, q querier) (int64, error) {
	upd := s.sql.Update(tableSequence).
		Add("next_val", 1).
		Where(entsql.EQ("id", 1))
	if _, err := exec(ctx, q, upd); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}

	sel := s.sql.Select("next_val").
		From(s.sql.Table(tableSequence)).
		Where(entsql.EQ("id", 1))
	var next int64
	if err := queryRow(ctx, q, sel).Scan(&next); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return next - 1, nil
}
