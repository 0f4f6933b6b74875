package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/replicate/internal/model"
)

const statusColumns = `id, config_id, config_name, source, destination, direction, state,
	start_time, end_time, duration_ns,
	pull_replicated, pull_failed, pull_bytes,
	push_replicated, push_failed, push_bytes`

// AppendStatus records a completed job execution.
// Uses ON CONFLICT(id) DO NOTHING - appending the same status twice is a no-op.
func (s *Store) AppendStatus(ctx context.Context, st model.Status) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO replication_status (`+statusColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		st.ID,
		st.ConfigID,
		st.ConfigName,
		st.Source,
		st.Destination,
		string(st.Direction),
		string(st.State),
		formatTime(st.StartTime),
		formatTime(st.EndTime),
		int64(st.Duration),
		st.Pull.Replicated, st.Pull.Failed, st.Pull.Bytes,
		st.Push.Replicated, st.Push.Failed, st.Push.Bytes,
	)
	if err != nil {
		return fmt.Errorf("append status: %w", err)
	}
	return nil
}

// HistoryQuery selects history entries. Zero values select everything.
type HistoryQuery struct {
	ConfigID string
	State    model.State
	Limit    int
}

// History returns statuses newest first.
func (s *Store) History(ctx context.Context, q HistoryQuery) ([]model.Status, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+statusColumns+`
		FROM replication_status
		WHERE (? = '' OR config_id = ?) AND (? = '' OR state = ?)
		ORDER BY seq DESC
		LIMIT ?
	`, q.ConfigID, q.ConfigID, string(q.State), string(q.State), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := []model.Status{}
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("query history: %w", err)
		}
		history = append(history, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return history, nil
}

// LastSuccess returns the start time of the most recent SUCCESS execution
// of a replication. ok is false if it never succeeded.
func (s *Store) LastSuccess(ctx context.Context, configID string) (t time.Time, ok bool, err error) {
	var start string
	err = s.db.QueryRowContext(ctx, `
		SELECT start_time
		FROM replication_status
		WHERE config_id = ? AND state = ?
		ORDER BY start_time DESC, seq DESC
		LIMIT 1
	`, configID, string(model.StateSuccess)).Scan(&start)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last success for %q: %w", configID, err)
	}
	t, err = parseTime(start)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, !t.IsZero(), nil
}

func scanStatus(row rowScanner) (model.Status, error) {
	var (
		st            model.Status
		direction     string
		state         string
		start         string
		end           string
		durationNanos int64
	)
	if err := row.Scan(
		&st.ID, &st.ConfigID, &st.ConfigName, &st.Source, &st.Destination,
		&direction, &state, &start, &end, &durationNanos,
		&st.Pull.Replicated, &st.Pull.Failed, &st.Pull.Bytes,
		&st.Push.Replicated, &st.Push.Failed, &st.Push.Bytes,
	); err != nil {
		return model.Status{}, err
	}
	st.Direction = model.Direction(direction)
	st.State = model.State(state)
	st.Duration = time.Duration(durationNanos)

	var err error
	if st.StartTime, err = parseTime(start); err != nil {
		return model.Status{}, err
	}
	if st.EndTime, err = parseTime(end); err != nil {
		return model.Status{}, err
	}
	return st, nil
}
