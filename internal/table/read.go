package table

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Exists reports whether ns holds a row for key.
func (s *SQLite) Exists(ctx context.Context, ns, key string) (bool, error) {
	if err := s.EnsureTable(ctx, ns); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE key = ?
	`, quoteIdent(ns)), key).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check key %q in %q: %w", key, ns, err)
	}
	return count > 0, nil
}

// Lookup returns the stored value for key and whether the row exists.
func (s *SQLite) Lookup(ctx context.Context, ns, key string) (string, bool, error) {
	if err := s.EnsureTable(ctx, ns); err != nil {
		return "", false, err
	}

	var value string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT value FROM %s WHERE key = ?
	`, quoteIdent(ns)), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup key %q in %q: %w", key, ns, err)
	}
	return value, true, nil
}

// Scan returns every row of ns in insertion order.
// Returns an empty slice (not nil) for an empty table.
func (s *SQLite) Scan(ctx context.Context, ns string) ([]Entry, error) {
	if err := s.EnsureTable(ctx, ns); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT key, value FROM %s
		ORDER BY _id ASC
	`, quoteIdent(ns)))
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", ns, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("scan %q: row: %w", ns, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %q: %w", ns, err)
	}

	return entries, nil
}
