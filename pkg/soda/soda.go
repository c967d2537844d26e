// Package soda drives Simple Oracle Document Access through the DBMS_SODA
// PL/SQL API, so collections can be used over any database/sql connection.
package soda

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/pkg/jdbc"
	"github.com/datazip-inc/oratest/types"
	"github.com/datazip-inc/oratest/utils/logger"
	"github.com/goccy/go-json"
	go_ora "github.com/sijms/go-ora/v2"
)

// ErrCollectionNotFound is returned when opening a collection that does not exist
var ErrCollectionNotFound = errors.New("soda collection not found")

const (
	// outputSize caps the CLOB returned by read operations
	outputSize = 1 << 20
	mediaJSON  = "application/json"
)

// MinVersion is the lowest client and server release supporting SODA
var MinVersion = types.MustParseVersion(constants.SodaMinVersion)

// Database is the SODA entry point of a connection
type Database struct {
	q jdbc.Querier
}

func NewDatabase(q jdbc.Querier) *Database {
	return &Database{q: q}
}

// CreateCollection creates the collection, or opens it when it already exists
// with matching metadata. A nil metadata uses the server defaults.
func (d *Database) CreateCollection(ctx context.Context, name string, metadata *types.CollectionMetadata) (*Collection, error) {
	var meta any
	if metadata != nil {
		m, err := metadata.JSON()
		if err != nil {
			return nil, err
		}
		meta = m
	}
	if _, err := d.q.ExecContext(ctx, jdbc.SodaCreateCollectionBlock(), name, meta); err != nil {
		return nil, fmt.Errorf("failed to create collection[%s]: %w", name, err)
	}
	logger.Debugf("created soda collection[%s]", name)
	return d.OpenCollection(ctx, name)
}

// OpenCollection returns ErrCollectionNotFound when name does not exist
func (d *Database) OpenCollection(ctx context.Context, name string) (*Collection, error) {
	var table, sqlType string
	err := d.q.QueryRowContext(ctx, jdbc.SodaCollectionInfoQuery(), name).Scan(&table, &sqlType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open collection[%s]: %w", name, err)
	}

	storage, err := storageFor(sqlType)
	if err != nil {
		return nil, err
	}
	return &Collection{db: d, Name: name, Table: table, storage: storage}, nil
}

// CollectionNames lists all collections of the current user ordered by name
func (d *Database) CollectionNames(ctx context.Context) ([]string, error) {
	rows, err := d.q.QueryContext(ctx, jdbc.SodaListCollectionsQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan collection name: %s", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DropCollection reports false when there was nothing to drop
func (d *Database) DropCollection(ctx context.Context, name string) (bool, error) {
	_, err := d.q.ExecContext(ctx, jdbc.SodaDropCollectionBlock(), name)
	if jdbc.IsOraError(err, constants.ErrCollectionMissing) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to drop collection[%s]: %w", name, err)
	}
	return true, nil
}

// rawDocument is the per-document shape emitted by the read blocks
type rawDocument struct {
	Key          string          `json:"key"`
	Version      string          `json:"version"`
	MediaType    string          `json:"media_type"`
	CreatedOn    string          `json:"created_on"`
	LastModified string          `json:"last_modified"`
	Content      json.RawMessage `json:"content"`
}

func decodeDocuments(clob go_ora.Clob) ([]*types.Document, error) {
	if !clob.Valid || clob.String == "" {
		return nil, nil
	}
	var raws []rawDocument
	if err := json.Unmarshal([]byte(clob.String), &raws); err != nil {
		return nil, fmt.Errorf("failed to decode soda documents: %s", err)
	}

	docs := make([]*types.Document, 0, len(raws))
	for _, raw := range raws {
		doc := &types.Document{
			Key:          raw.Key,
			Version:      raw.Version,
			MediaType:    raw.MediaType,
			CreatedOn:    raw.CreatedOn,
			LastModified: raw.LastModified,
		}
		switch {
		case len(raw.Content) == 0 || string(raw.Content) == "null":
		case raw.MediaType == mediaJSON || raw.MediaType == "":
			doc.Content = []byte(raw.Content)
		default:
			var text string
			if err := json.Unmarshal(raw.Content, &text); err != nil {
				return nil, fmt.Errorf("failed to decode content of document[%s]: %s", raw.Key, err)
			}
			doc.Content = []byte(text)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// encodeContent turns document content into the text bound to the server
func encodeContent(content any) (string, error) {
	switch c := content.(type) {
	case string:
		return c, nil
	case []byte:
		return string(c), nil
	case json.RawMessage:
		return string(c), nil
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return "", fmt.Errorf("failed to encode document content: %s", err)
		}
		return string(b), nil
	}
}
