package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/replicate/internal/model"
)

const filterColumns = `id, site_id, name, description, query, suspended`

// SaveFilter validates f and inserts or replaces it.
func (s *Store) SaveFilter(ctx context.Context, f model.Filter) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("save filter: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO filters (`+filterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			site_id = excluded.site_id,
			name = excluded.name,
			description = excluded.description,
			query = excluded.query,
			suspended = excluded.suspended
	`, f.ID, f.SiteID, f.Name, f.Description, f.Query, f.Suspended)
	if err != nil {
		return fmt.Errorf("save filter: %w", err)
	}
	return nil
}

// Filter returns the filter with id. Returns ErrFilterNotFound if none.
func (s *Store) Filter(ctx context.Context, id string) (model.Filter, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+filterColumns+` FROM filters WHERE id = ?`, id)
	f, err := scanFilter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Filter{}, fmt.Errorf("filter %q: %w", id, ErrFilterNotFound)
	}
	if err != nil {
		return model.Filter{}, fmt.Errorf("read filter: %w", err)
	}
	return f, nil
}

// Filters returns every filter ordered by site then name.
func (s *Store) Filters(ctx context.Context) ([]model.Filter, error) {
	return s.queryFilters(ctx, `SELECT `+filterColumns+` FROM filters ORDER BY site_id, name, id`)
}

// FiltersForSite returns the filters scoped to siteID ordered by name.
func (s *Store) FiltersForSite(ctx context.Context, siteID string) ([]model.Filter, error) {
	return s.queryFilters(ctx, `SELECT `+filterColumns+` FROM filters WHERE site_id = ? ORDER BY name, id`, siteID)
}

// RemoveFilter deletes the filter with id. Returns ErrFilterNotFound if none.
func (s *Store) RemoveFilter(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM filters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove filter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove filter: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("remove filter %q: %w", id, ErrFilterNotFound)
	}
	return nil
}

func (s *Store) queryFilters(ctx context.Context, query string, args ...any) ([]model.Filter, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}
	defer rows.Close()

	filters := []model.Filter{}
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, fmt.Errorf("query filters: %w", err)
		}
		filters = append(filters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filters: %w", err)
	}
	return filters, nil
}

func scanFilter(row rowScanner) (model.Filter, error) {
	var f model.Filter
	err := row.Scan(&f.ID, &f.SiteID, &f.Name, &f.Description, &f.Query, &f.Suspended)
	return f, err
}
