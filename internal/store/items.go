package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/replicate/internal/model"
)

const itemColumns = `metadata_id, config_id, source, destination, status, failure_count, metadata_modified, last_attempt`

// Item returns the tracker entry for one record replicated from source to
// destination. Returns ErrItemNotFound if none exists.
func (s *Store) Item(ctx context.Context, metadataID, source, destination string) (model.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM replication_items
		WHERE metadata_id = ? AND source = ? AND destination = ?
	`, metadataID, source, destination)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("item %q %s->%s: %w", metadataID, source, destination, ErrItemNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("read item: %w", err)
	}
	return item, nil
}

// SaveItem inserts or replaces the tracker entry for item.
func (s *Store) SaveItem(ctx context.Context, item model.Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO replication_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(metadata_id, source, destination) DO UPDATE SET
			config_id = excluded.config_id,
			status = excluded.status,
			failure_count = excluded.failure_count,
			metadata_modified = excluded.metadata_modified,
			last_attempt = excluded.last_attempt
	`,
		item.MetadataID,
		item.ConfigID,
		item.Source,
		item.Destination,
		string(item.Status),
		item.FailureCount,
		formatTime(item.MetadataModified),
		formatTime(item.LastAttempt),
	)
	if err != nil {
		return fmt.Errorf("save item: %w", err)
	}
	return nil
}

// ListItems returns items ordered by config id then metadata id. An empty
// configID lists items of every replication. A limit of 0 means no limit.
func (s *Store) ListItems(ctx context.Context, configID string, offset, limit int) ([]model.Item, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM replication_items
		WHERE ? = '' OR config_id = ?
		ORDER BY config_id, metadata_id COLLATE BINARY, source, destination
		LIMIT ? OFFSET ?
	`, configID, configID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// FailureList returns ids of items from source to destination whose last
// attempt failed and whose failure count is still below maxFailures.
func (s *Store) FailureList(ctx context.Context, maxFailures int, source, destination string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT metadata_id
		FROM replication_items
		WHERE source = ? AND destination = ? AND status = ? AND failure_count < ?
		ORDER BY metadata_id COLLATE BINARY
	`, source, destination, string(model.ItemFailure), maxFailures)
	if err != nil {
		return nil, fmt.Errorf("failure list: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failure list: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failure list: %w", err)
	}
	return ids, nil
}

// ResetItem clears an item's failure counter so it is retried again.
func (s *Store) ResetItem(ctx context.Context, metadataID, source, destination string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE replication_items SET failure_count = 0
		WHERE metadata_id = ? AND source = ? AND destination = ?
	`, metadataID, source, destination)
	if err != nil {
		return fmt.Errorf("reset item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reset item %q %s->%s: %w", metadataID, source, destination, ErrItemNotFound)
	}
	return nil
}

// DeleteItemsForConfig removes every item owned by a replication and
// returns the number removed.
func (s *Store) DeleteItemsForConfig(ctx context.Context, configID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM replication_items WHERE config_id = ?`, configID)
	if err != nil {
		return 0, fmt.Errorf("delete items for %q: %w", configID, err)
	}
	return res.RowsAffected()
}

// DeleteAllItems removes every item and returns the number removed.
func (s *Store) DeleteAllItems(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM replication_items`)
	if err != nil {
		return 0, fmt.Errorf("delete all items: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (model.Item, error) {
	var (
		item     model.Item
		status   string
		modified string
		attempt  string
	)
	if err := row.Scan(
		&item.MetadataID, &item.ConfigID, &item.Source, &item.Destination,
		&status, &item.FailureCount, &modified, &attempt,
	); err != nil {
		return model.Item{}, err
	}
	item.Status = model.ItemStatus(status)

	var err error
	if item.MetadataModified, err = parseTime(modified); err != nil {
		return model.Item{}, err
	}
	if item.LastAttempt, err = parseTime(attempt); err != nil {
		return model.Item{}, err
	}
	return item, nil
}
