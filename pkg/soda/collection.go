package soda

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/pkg/jdbc"
	"github.com/datazip-inc/oratest/types"
	"github.com/datazip-inc/oratest/utils/logger"
	go_ora "github.com/sijms/go-ora/v2"
	"golang.org/x/sync/errgroup"
)

// Collection is an opened SODA collection
type Collection struct {
	db      *Database
	storage contentStorage

	Name  string
	Table string
}

// ContentType returns the SQL type of the content column
func (c *Collection) ContentType() string {
	return c.storage.sqlType
}

// InsertOne inserts content (string, []byte or any JSON encodable value)
func (c *Collection) InsertOne(ctx context.Context, content any) error {
	_, err := c.insert(ctx, "", "", content, false)
	return err
}

// InsertOneAndGet inserts content and returns the stored document without its content
func (c *Collection) InsertOneAndGet(ctx context.Context, content any) (*types.Document, error) {
	return c.insert(ctx, "", "", content, true)
}

// InsertWithKeyAndGet inserts into a collection with client assigned keys.
// An empty mediaType stores JSON.
func (c *Collection) InsertWithKeyAndGet(ctx context.Context, key, mediaType string, content any) (*types.Document, error) {
	if key == "" {
		return nil, fmt.Errorf("client assigned key must not be empty")
	}
	return c.insert(ctx, key, mediaType, content, true)
}

func (c *Collection) insert(ctx context.Context, key, mediaType string, content any, get bool) (*types.Document, error) {
	text, err := encodeContent(content)
	if err != nil {
		return nil, err
	}

	b := newBlock(c.storage, c.Name)
	doc := b.document(text, key, mediaType)
	if !get {
		b.line("v_coll.insert_one(%s);", doc)
		_, err := c.exec(ctx, b, "insert into")
		return nil, err
	}

	b.line("v_doc := v_coll.insert_one_and_get(%s);", doc)
	b.line("add_doc(v_doc);")
	docs, err := c.queryDocuments(ctx, b, "insert into")
	if err != nil {
		return nil, err
	}
	if len(docs) != 1 {
		return nil, fmt.Errorf("insert into collection[%s] returned %d documents", c.Name, len(docs))
	}
	return docs[0], nil
}

// InsertMany inserts every content concurrently. Completion order is not
// preserved; the returned count is the number of successful inserts.
func (c *Collection) InsertMany(ctx context.Context, contents []any) (int, error) {
	var inserted atomic.Int64
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(constants.DefaultThreadCount)
	for _, content := range contents {
		group.Go(func() error {
			if err := c.InsertOne(gctx, content); err != nil {
				return err
			}
			inserted.Add(1)
			return nil
		})
	}
	err := group.Wait()
	return int(inserted.Load()), err
}

// Find starts a read or write operation on the collection
func (c *Collection) Find() *Operation {
	return &Operation{coll: c}
}

// Drop drops the collection and reports whether it existed
func (c *Collection) Drop(ctx context.Context) (bool, error) {
	return c.db.DropCollection(ctx, c.Name)
}

// Truncate removes every document
func (c *Collection) Truncate(ctx context.Context) error {
	b := newBlock(c.storage, c.Name)
	b.line("v_num := v_coll.truncate;")
	_, err := c.exec(ctx, b, "truncate")
	return err
}

// CreateIndex creates an index from its JSON specification
func (c *Collection) CreateIndex(ctx context.Context, spec any) error {
	text, err := encodeContent(spec)
	if err != nil {
		return err
	}
	b := newBlock(c.storage, c.Name)
	b.line("v_num := v_coll.create_index(%s);", b.bind(text))
	_, err = c.exec(ctx, b, "create index on")
	return err
}

// DropIndex reports whether an index was dropped
func (c *Collection) DropIndex(ctx context.Context, name string, force bool) (bool, error) {
	var dropped int64
	b := newBlock(c.storage, c.Name)
	b.line("v_num := v_coll.drop_index(%s, %s);", b.bind(name), strings.ToUpper(fmt.Sprint(force)))
	b.line("%s := v_num;", b.bind(go_ora.Out{Dest: &dropped}))
	if _, err := c.exec(ctx, b, "drop index on"); err != nil {
		return false, err
	}
	return dropped == 1, nil
}

// ListIndexes returns the index names of the collection table, excluding the key index
func (c *Collection) ListIndexes(ctx context.Context) ([]string, error) {
	rows, err := c.db.q.QueryContext(ctx, jdbc.SodaListIndexesQuery(), c.Table, c.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes of collection[%s]: %w", c.Name, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan index name: %s", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *Collection) exec(ctx context.Context, b *block, action string) (int64, error) {
	res, err := c.db.q.ExecContext(ctx, b.String(), b.args...)
	if jdbc.IsOraError(err, constants.ErrCollectionMissing) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, c.Name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to %s collection[%s]: %w", action, c.Name, err)
	}
	if res == nil {
		return 0, nil
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// queryDocuments runs a block that fills v_arr and returns the decoded documents
func (c *Collection) queryDocuments(ctx context.Context, b *block, action string) ([]*types.Document, error) {
	var out go_ora.Clob
	b.line("%s := v_arr.to_clob();", b.bind(go_ora.Out{Dest: &out, Size: outputSize}))
	if _, err := c.exec(ctx, b, action); err != nil {
		return nil, err
	}
	docs, err := decodeDocuments(out)
	if err != nil {
		return nil, err
	}
	logger.Debugf("%s collection[%s] returned %d documents", action, c.Name, len(docs))
	return docs, nil
}
