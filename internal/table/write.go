package table

import (
	"context"
	"database/sql"
	"fmt"
)

// ApplyBatch applies ops to ns inside a single transaction.
//
// Each operation runs under its own savepoint: a failing operation (constraint
// violation, or an update/delete that matched no row) is rolled back alone
// and reported in its Outcome, while the remaining operations still commit.
// The returned error is non-nil only when the transaction as a whole could
// not be started or committed; in that case nothing was persisted.
func (s *SQLite) ApplyBatch(ctx context.Context, ns string, ops []Op) ([]Outcome, error) {
	if err := s.EnsureTable(ctx, ns); err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return []Outcome{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("apply batch %q: begin tx: %w", ns, err)
	}
	defer tx.Rollback() // No-op if committed

	outcomes := make([]Outcome, len(ops))
	for i, op := range ops {
		outcomes[i] = Outcome{Op: op, Err: applyOp(ctx, tx, ns, i, op)}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("apply batch %q: commit: %w", ns, err)
	}

	return outcomes, nil
}

// applyOp executes one operation under savepoint op_<i>.
func applyOp(ctx context.Context, tx *sql.Tx, ns string, i int, op Op) error {
	savepoint := fmt.Sprintf("op_%d", i)
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return fmt.Errorf("%s %q: savepoint: %w", op.Kind, op.Key, err)
	}

	opErr := execOp(ctx, tx, ns, op)
	if opErr != nil {
		if _, err := tx.ExecContext(ctx, "ROLLBACK TO "+savepoint); err != nil {
			return fmt.Errorf("%s %q: rollback: %w", op.Kind, op.Key, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "RELEASE "+savepoint); err != nil {
		return fmt.Errorf("%s %q: release: %w", op.Kind, op.Key, err)
	}
	return opErr
}

// execOp runs the statement for op and checks that exactly one row changed.
func execOp(ctx context.Context, tx *sql.Tx, ns string, op Op) error {
	var (
		result sql.Result
		err    error
	)
	table := quoteIdent(ns)

	switch op.Kind {
	case OpInsert:
		result, err = tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (key, value) VALUES (?, ?)
		`, table), op.Key, op.Value)
	case OpUpdate:
		result, err = tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %s SET value = ? WHERE key = ?
		`, table), op.Value, op.Key)
	case OpDelete:
		result, err = tx.ExecContext(ctx, fmt.Sprintf(`
			DELETE FROM %s WHERE key = ?
		`, table), op.Key)
	default:
		return fmt.Errorf("unknown operation %s for key %q", op.Kind, op.Key)
	}
	if err != nil {
		return fmt.Errorf("%s %q: %w", op.Kind, op.Key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %q: rows affected: %w", op.Kind, op.Key, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %q: %w", op.Kind, op.Key, ErrNoRow)
	}
	return nil
}
