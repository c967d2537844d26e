package lob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/pkg/jdbc"
)

var ErrWriterClosed = errors.New("lob writer already closed")

// Writer appends to an existing locator. CLOB amounts are counted in UTF-16
// code units, which is how the server measures character LOBs.
type Writer struct {
	ctx     context.Context
	q       jdbc.Querier
	target  Target
	id      any
	query   string
	buf     []byte
	written int64
	closed  bool
}

// NewWriter returns a writer appending to the LOB of row id. The row must
// already exist and q should be the transaction that holds its lock.
func NewWriter(ctx context.Context, q jdbc.Querier, target Target, id any) (*Writer, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return &Writer{
		ctx:    ctx,
		q:      q,
		target: target,
		id:     id,
		query:  jdbc.LobAppendBlock(target.Table, target.KeyColumn, target.LobColumn, target.Kind),
	}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	w.buf = append(w.buf, p...)
	if err := w.drain(false); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close flushes whatever is still buffered. A CLOB writer fails when the
// buffered tail is not valid UTF-8.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.drain(true)
}

// Written returns the number of bytes appended so far
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) drain(final bool) error {
	for {
		n, amount, err := w.nextChunk(final)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		var data any = w.buf[:n]
		if w.target.Kind == jdbc.CLOB {
			data = string(w.buf[:n])
		}
		if _, err := w.q.ExecContext(w.ctx, w.query, w.id, amount, data); err != nil {
			return fmt.Errorf("failed to append %d units to %s: %s", amount, w.target.LobColumn, err)
		}
		w.written += int64(n)
		w.buf = w.buf[n:]
	}
}

// nextChunk returns the byte length and server amount of the next chunk to send,
// or zero when more data should be buffered first
func (w *Writer) nextChunk(final bool) (int, int, error) {
	if w.target.Kind == jdbc.BLOB {
		switch {
		case len(w.buf) >= constants.BlobWriteChunk:
			return constants.BlobWriteChunk, constants.BlobWriteChunk, nil
		case final:
			return len(w.buf), len(w.buf), nil
		default:
			return 0, 0, nil
		}
	}

	i, units, full := 0, 0, false
	for i < len(w.buf) {
		if !utf8.FullRune(w.buf[i:]) {
			if final {
				return 0, 0, fmt.Errorf("clob content ends with a truncated utf-8 sequence")
			}
			break
		}
		r, size := utf8.DecodeRune(w.buf[i:])
		if r == utf8.RuneError && size == 1 {
			return 0, 0, fmt.Errorf("clob content is not valid utf-8 at byte %d", w.written+int64(i))
		}
		ul := utf16.RuneLen(r)
		if units+ul > constants.ClobWriteChunk {
			full = true
			break
		}
		i += size
		units += ul
	}
	if full || final {
		return i, units, nil
	}
	return 0, 0, nil
}

// Reader reads a LOB through repeated DBMS_LOB.SUBSTR calls
type Reader struct {
	ctx    context.Context
	q      jdbc.Querier
	target Target
	id     any
	query  string
	offset int64
	buf    []byte
	eof    bool
}

// NewReader returns a reader over the LOB of row id
func NewReader(ctx context.Context, q jdbc.Querier, target Target, id any) (*Reader, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return &Reader{
		ctx:    ctx,
		q:      q,
		target: target,
		id:     id,
		query:  jdbc.LobReadChunkQuery(target.Table, target.KeyColumn, target.LobColumn),
		offset: 1,
	}, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *Reader) fill() error {
	amount := int64(constants.BlobReadChunk)
	if r.target.Kind == jdbc.CLOB {
		amount = constants.ClobReadChunk
	}

	row := r.q.QueryRowContext(r.ctx, r.query, amount, r.offset, r.id)
	var (
		chunk []byte
		units int64
		err   error
	)
	if r.target.Kind == jdbc.BLOB {
		err = row.Scan(&chunk)
		units = int64(len(chunk))
	} else {
		var s sql.NullString
		err = row.Scan(&s)
		chunk, units = clobChunk(s.String, amount)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no row with %s = %v in %s", r.target.KeyColumn, r.id, r.target.Table)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s at offset %d: %s", r.target.LobColumn, r.offset, err)
	}

	r.offset += units
	switch r.target.Kind {
	case jdbc.CLOB:
		// a full chunk may come back one unit short when it would end inside a surrogate pair
		r.eof = units+1 < amount
	default:
		r.eof = units < amount
	}
	r.buf = chunk
	return nil
}

// clobChunk counts the UTF-16 units of a CLOB chunk. A full chunk ending in a
// replacement character was cut inside a surrogate pair; that half is dropped
// so the next read starts on the whole pair.
func clobChunk(s string, amount int64) ([]byte, int64) {
	var units int64
	for _, c := range s {
		units += int64(utf16.RuneLen(c))
	}
	if units == amount {
		if last, size := utf8.DecodeLastRuneInString(s); last == utf8.RuneError && size > 0 {
			s = s[:len(s)-size]
			units--
		}
	}
	return []byte(s), units
}
