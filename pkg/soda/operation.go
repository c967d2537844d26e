package soda

import (
	"context"
	"fmt"
	"strings"

	"github.com/datazip-inc/oratest/types"
	go_ora "github.com/sijms/go-ora/v2"
)

// Operation narrows a collection to a set of documents. Builders return the
// operation so calls can be chained; the first builder error is reported by
// the terminal call.
type Operation struct {
	coll    *Collection
	key     string
	keys    []string
	filter  string
	version string
	skip    int64
	limit   int64
	hasSkip bool
	hasLim  bool
	err     error
}

func (o *Operation) Key(key string) *Operation {
	o.key = key
	return o
}

func (o *Operation) Keys(keys ...string) *Operation {
	o.keys = append(o.keys, keys...)
	return o
}

// Filter sets a query-by-example; qbe is a JSON string or any JSON encodable value
func (o *Operation) Filter(qbe any) *Operation {
	text, err := encodeContent(qbe)
	if err != nil && o.err == nil {
		o.err = err
	}
	o.filter = text
	return o
}

// Version restricts writes to the document with this version
func (o *Operation) Version(version string) *Operation {
	o.version = version
	return o
}

// Skip and Limit are forwarded as is; the server rejects them for Count with ORA-40748
func (o *Operation) Skip(n int64) *Operation {
	o.skip, o.hasSkip = n, true
	return o
}

func (o *Operation) Limit(n int64) *Operation {
	o.limit, o.hasLim = n, true
	return o
}

// chain renders the operation against v_coll, registering its binds in b
func (o *Operation) chain(b *block) string {
	var sb strings.Builder
	sb.WriteString("v_coll.find()")
	if o.key != "" {
		fmt.Fprintf(&sb, ".key(%s)", b.bind(o.key))
	}
	if len(o.keys) > 0 {
		binds := make([]string, len(o.keys))
		for i, key := range o.keys {
			binds[i] = b.bind(key)
		}
		fmt.Fprintf(&sb, ".keys(SODA_KEY_LIST_T(%s))", strings.Join(binds, ", "))
	}
	if o.filter != "" {
		fmt.Fprintf(&sb, ".filter(%s)", b.bind(o.filter))
	}
	if o.version != "" {
		fmt.Fprintf(&sb, ".version(%s)", b.bind(o.version))
	}
	if o.hasSkip {
		fmt.Fprintf(&sb, ".skip(%s)", b.bind(o.skip))
	}
	if o.hasLim {
		fmt.Fprintf(&sb, ".limit(%s)", b.bind(o.limit))
	}
	return sb.String()
}

func (o *Operation) number(ctx context.Context, method, action string) (int64, error) {
	if o.err != nil {
		return 0, o.err
	}
	var n int64
	b := newBlock(o.coll.storage, o.coll.Name)
	b.line("v_num := %s.%s();", o.chain(b), method)
	b.line("%s := v_num;", b.bind(go_ora.Out{Dest: &n}))
	if _, err := o.coll.exec(ctx, b, action); err != nil {
		return 0, err
	}
	return n, nil
}

// Count returns the number of matching documents
func (o *Operation) Count(ctx context.Context) (int64, error) {
	return o.number(ctx, "count", "count")
}

// Remove deletes the matching documents and returns how many were removed
func (o *Operation) Remove(ctx context.Context) (int64, error) {
	return o.number(ctx, "remove", "remove from")
}

// GetOne returns the first matching document, or nil when nothing matches
func (o *Operation) GetOne(ctx context.Context) (*types.Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	b := newBlock(o.coll.storage, o.coll.Name)
	b.line("v_doc := %s.get_one();", o.chain(b))
	b.line("IF v_doc IS NOT NULL THEN add_doc(v_doc); END IF;")
	docs, err := o.coll.queryDocuments(ctx, b, "read from")
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// GetDocuments returns every matching document
func (o *Operation) GetDocuments(ctx context.Context) ([]*types.Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	b := newBlock(o.coll.storage, o.coll.Name)
	b.line("v_cur := %s.get_cursor();", o.chain(b))
	b.line("WHILE v_cur.has_next LOOP")
	b.line("    v_doc := v_cur.next;")
	b.line("    add_doc(v_doc);")
	b.line("END LOOP;")
	b.line("v_closed := v_cur.close;")
	return o.coll.queryDocuments(ctx, b, "read from")
}

// ReplaceOne replaces the single matching document and reports whether one was replaced
func (o *Operation) ReplaceOne(ctx context.Context, content any) (bool, error) {
	if o.err != nil {
		return false, o.err
	}
	text, err := encodeContent(content)
	if err != nil {
		return false, err
	}
	var replaced int64
	b := newBlock(o.coll.storage, o.coll.Name)
	chain := o.chain(b)
	b.line("v_num := %s.replace_one(%s);", chain, b.document(text, "", ""))
	b.line("%s := v_num;", b.bind(go_ora.Out{Dest: &replaced}))
	if _, err := o.coll.exec(ctx, b, "replace in"); err != nil {
		return false, err
	}
	return replaced == 1, nil
}

// ReplaceOneAndGet replaces the matching document and returns the new version, or nil
func (o *Operation) ReplaceOneAndGet(ctx context.Context, content any) (*types.Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	text, err := encodeContent(content)
	if err != nil {
		return nil, err
	}
	b := newBlock(o.coll.storage, o.coll.Name)
	chain := o.chain(b)
	b.line("v_doc := %s.replace_one_and_get(%s);", chain, b.document(text, "", ""))
	b.line("IF v_doc IS NOT NULL THEN add_doc(v_doc); END IF;")
	docs, err := o.coll.queryDocuments(ctx, b, "replace in")
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}
