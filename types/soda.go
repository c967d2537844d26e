package types

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Document is a SODA document as returned by a collection write or read
type Document struct {
	Key          string `json:"key"`
	Version      string `json:"version,omitempty"`
	MediaType    string `json:"media_type,omitempty"`
	CreatedOn    string `json:"created_on,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Content      []byte `json:"content,omitempty"`
}

// ContentAs decodes the JSON content into v
func (d *Document) ContentAs(v any) error {
	if len(d.Content) == 0 {
		return fmt.Errorf("document[%s] has no content", d.Key)
	}
	if err := json.Unmarshal(d.Content, v); err != nil {
		return fmt.Errorf("failed to decode content of document[%s]: %s", d.Key, err)
	}
	return nil
}

// KeyAssignment values accepted in collection metadata
type KeyAssignment string

const (
	KeyUUID        KeyAssignment = "UUID"
	KeyGUID        KeyAssignment = "GUID"
	KeyClient      KeyAssignment = "CLIENT"
	KeySequence    KeyAssignment = "SEQUENCE"
	KeyEmbeddedOID KeyAssignment = "EMBEDDED_OID"
)

type KeyColumn struct {
	Name             string        `json:"name,omitempty"`
	SQLType          string        `json:"sqlType,omitempty"`
	AssignmentMethod KeyAssignment `json:"assignmentMethod,omitempty"`
}

type ContentColumn struct {
	Name    string `json:"name,omitempty"`
	SQLType string `json:"sqlType,omitempty"`
}

// CollectionMetadata is the subset of SODA collection metadata used by the fixtures.
// Unset fields are omitted so the server applies its defaults.
type CollectionMetadata struct {
	SchemaName    string         `json:"schemaName,omitempty"`
	TableName     string         `json:"tableName,omitempty"`
	KeyColumn     *KeyColumn     `json:"keyColumn,omitempty"`
	ContentColumn *ContentColumn `json:"contentColumn,omitempty"`
	ReadOnly      bool           `json:"readOnly,omitempty"`
}

func (m *CollectionMetadata) JSON() (string, error) {
	if m == nil {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal collection metadata: %s", err)
	}
	return string(b), nil
}

const oidKeyPrefix = "08"

// EmbeddedOIDKey returns the key the server derives from a client supplied
// string _id: the OID type byte "08" followed by the hex of the id bytes.
// Use GeneratedOIDKey when the server generated the _id.
func EmbeddedOIDKey(id string) string {
	return oidKeyPrefix + hex.EncodeToString([]byte(id))
}

// EmbeddedOIDFromKey reverses EmbeddedOIDKey. Keys of generated ids hold raw
// OID bytes and are rejected; read those with OIDFromKey.
func EmbeddedOIDFromKey(key string) (string, error) {
	raw, err := OIDFromKey(key)
	if err != nil {
		return "", err
	}
	b, _ := hex.DecodeString(raw)
	if !utf8.Valid(b) || strings.ContainsFunc(string(b), func(r rune) bool { return !unicode.IsPrint(r) }) {
		return "", fmt.Errorf("key %s does not hold a string id, it is a generated oid", key)
	}
	return string(b), nil
}

// GeneratedOIDKey returns the key of a document whose _id the server
// generated. The generated _id reads back as hex text, so the key is "08"
// followed by that text.
func GeneratedOIDKey(hexID string) string {
	return oidKeyPrefix + strings.ToLower(hexID)
}

// OIDFromKey returns the lower case hex following the OID type byte, which
// is the _id of a generated key
func OIDFromKey(key string) (string, error) {
	key = strings.ToLower(key)
	if !strings.HasPrefix(key, oidKeyPrefix) {
		return "", fmt.Errorf("key %s is not an embedded oid key", key)
	}
	raw := key[len(oidKeyPrefix):]
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("failed to decode embedded oid key %s: %s", key, err)
	}
	return raw, nil
}

// Employee is the name/office seed record shared by the SODA suites
type Employee struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Office string `json:"office"`
}
