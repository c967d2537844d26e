// Package lob moves data between local files and BLOB/CLOB columns in bounded
// chunks, so arbitrarily large content never has to sit in one bind value.
package lob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/datazip-inc/oratest/pkg/file"
	"github.com/datazip-inc/oratest/pkg/jdbc"
	"github.com/datazip-inc/oratest/utils/logger"
)

// Target names the table and columns holding a LOB keyed by a single column
type Target struct {
	Table     string
	KeyColumn string
	LobColumn string
	Kind      jdbc.LobKind
}

func (t Target) Validate() error {
	if err := jdbc.ValidIdentifier(t.Table, t.KeyColumn, t.LobColumn); err != nil {
		return err
	}
	if t.Kind != jdbc.BLOB && t.Kind != jdbc.CLOB {
		return fmt.Errorf("unsupported lob kind: %q", t.Kind)
	}
	return nil
}

// StreamFile inserts a row keyed by id holding an empty locator and appends the
// content of path to it. Insert and appends share one transaction which is
// rolled back on any failure.
func StreamFile(ctx context.Context, db jdbc.TxBeginner, target Target, id any, path string) (int64, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}

	src, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open lob source[%s]: %w", path, err)
	}
	defer src.Close()

	var written int64
	err = jdbc.WithTransaction(ctx, db, func(tx *sql.Tx) error {
		query := jdbc.LobInsertEmptyQuery(target.Table, target.KeyColumn, target.LobColumn, target.Kind)
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to insert empty %s: %s", target.Kind, err)
		}

		w, err := NewWriter(ctx, tx, target, id)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, src); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		written = w.Written()
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Debugf("streamed %d bytes from file[%s] into %s.%s", written, path, target.Table, target.LobColumn)
	return written, nil
}

// ReadAll returns the whole LOB of row id
func ReadAll(ctx context.Context, q jdbc.Querier, target Target, id any) ([]byte, error) {
	r, err := NewReader(ctx, q, target, id)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// ToFile streams the LOB of row id into path and returns the number of bytes written
func ToFile(ctx context.Context, q jdbc.Querier, target Target, id any, path string) (int64, error) {
	r, err := NewReader(ctx, q, target, id)
	if err != nil {
		return 0, err
	}
	return file.WriteFrom(path, r)
}

// Length returns the LOB length of row id: bytes for BLOB, characters for CLOB
func Length(ctx context.Context, q jdbc.Querier, target Target, id any) (int64, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}

	var length int64
	err := q.QueryRowContext(ctx, jdbc.LobLengthQuery(target.Table, target.KeyColumn, target.LobColumn), id).Scan(&length)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("no row with %s = %v in %s", target.KeyColumn, id, target.Table)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get lob length: %s", err)
	}
	return length, nil
}

// Compare reports whether the LOBs of rows id1 and id2 hold the same content,
// along with the length of the first one
func Compare(ctx context.Context, q jdbc.Querier, target Target, id1, id2 any) (bool, int64, error) {
	if err := target.Validate(); err != nil {
		return false, 0, err
	}

	var cmp, length int64
	err := q.QueryRowContext(ctx, jdbc.LobCompareQuery(target.Table, target.KeyColumn, target.LobColumn), id1, id2).Scan(&cmp, &length)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, fmt.Errorf("rows %v and %v not both present in %s", id1, id2, target.Table)
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to compare lobs: %s", err)
	}
	return cmp == 0, length, nil
}
