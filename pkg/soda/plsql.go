package soda

import (
	"fmt"
	"strings"

	"github.com/datazip-inc/oratest/pkg/jdbc"
)

// contentStorage describes how a content column type is written and read back in PL/SQL
type contentStorage struct {
	sqlType  string
	ctorArg  string // SODA_DOCUMENT_T constructor argument name
	wrapBind func(bind string) string
	varType  string
	getter   string
	isEmpty  string
	asText   string
}

var storages = map[string]contentStorage{
	"BLOB": {
		sqlType:  "BLOB",
		ctorArg:  "b_content",
		wrapBind: func(b string) string { return fmt.Sprintf("UTL_RAW.CAST_TO_RAW(%s)", b) },
		varType:  "BLOB",
		getter:   "get_blob",
		isEmpty:  "v_c IS NULL OR DBMS_LOB.GETLENGTH(v_c) = 0",
		asText:   "UTL_RAW.CAST_TO_VARCHAR2(DBMS_LOB.SUBSTR(v_c, 32767, 1))",
	},
	"CLOB": {
		sqlType:  "CLOB",
		ctorArg:  "c_content",
		wrapBind: func(b string) string { return fmt.Sprintf("TO_CLOB(%s)", b) },
		varType:  "CLOB",
		getter:   "get_clob",
		isEmpty:  "v_c IS NULL OR DBMS_LOB.GETLENGTH(v_c) = 0",
		asText:   "DBMS_LOB.SUBSTR(v_c, 8191, 1)",
	},
	"VARCHAR2": {
		sqlType:  "VARCHAR2",
		ctorArg:  "v_content",
		wrapBind: func(b string) string { return b },
		varType:  "VARCHAR2(32767)",
		getter:   "get_varchar2",
		isEmpty:  "v_c IS NULL",
		asText:   "v_c",
	},
	"JSON": {
		sqlType:  "JSON",
		ctorArg:  "j_content",
		wrapBind: func(b string) string { return fmt.Sprintf("JSON(%s)", b) },
		varType:  "JSON",
		getter:   "get_json",
		isEmpty:  "v_c IS NULL",
		asText:   "JSON_ELEMENT_T.parse(v_c).to_string()",
	},
}

func storageFor(sqlType string) (contentStorage, error) {
	s, found := storages[strings.ToUpper(sqlType)]
	if !found {
		return contentStorage{}, fmt.Errorf("unsupported soda content column type: %s", sqlType)
	}
	return s, nil
}

// block accumulates a PL/SQL anonymous block with positional binds numbered in
// order of appearance, which is how the server matches them for PL/SQL
type block struct {
	storage contentStorage
	body    strings.Builder
	args    []any
}

func newBlock(storage contentStorage, collection string) *block {
	b := &block{storage: storage}
	b.args = append(b.args, collection)
	return b
}

// bind registers v and returns its placeholder
func (b *block) bind(v any) string {
	b.args = append(b.args, v)
	return jdbc.Placeholder(len(b.args))
}

func (b *block) line(format string, a ...any) {
	fmt.Fprintf(&b.body, "    "+format+"\n", a...)
}

// document returns a SODA_DOCUMENT_T constructor for content
func (b *block) document(content string, key string, mediaType string) string {
	args := make([]string, 0, 3)
	if key != "" {
		args = append(args, "key => "+b.bind(key))
	}
	args = append(args, fmt.Sprintf("%s => %s", b.storage.ctorArg, b.storage.wrapBind(b.bind(content))))
	if mediaType != "" {
		args = append(args, "media_type => "+b.bind(mediaType))
	}
	return fmt.Sprintf("SODA_DOCUMENT_T(%s)", strings.Join(args, ", "))
}

// String renders the block. The collection is opened first and a missing
// collection raises the same error as a failed drop.
func (b *block) String() string {
	return fmt.Sprintf(`DECLARE
    v_coll   SODA_COLLECTION_T;
    v_doc    SODA_DOCUMENT_T;
    v_cur    SODA_CURSOR_T;
    v_arr    JSON_ARRAY_T := JSON_ARRAY_T();
    v_num    NUMBER;
    v_closed BOOLEAN;

    PROCEDURE add_doc(d SODA_DOCUMENT_T) IS
        v_obj JSON_OBJECT_T := JSON_OBJECT_T();
        v_c   %s;
    BEGIN
        v_obj.put('key', d.get_key());
        v_obj.put('version', d.get_version());
        v_obj.put('media_type', d.get_media_type());
        v_obj.put('created_on', d.get_created_on());
        v_obj.put('last_modified', d.get_last_modified());
        v_c := d.%s();
        IF %s THEN
            v_obj.put_null('content');
        ELSIF d.get_media_type() = 'application/json' THEN
            v_obj.put('content', JSON_ELEMENT_T.parse(v_c));
        ELSE
            v_obj.put('content', %s);
        END IF;
        v_arr.append(v_obj);
    END;
BEGIN
    v_coll := DBMS_SODA.OPEN_COLLECTION(:1);
    IF v_coll IS NULL THEN
        RAISE_APPLICATION_ERROR(-20404, 'collection not found');
    END IF;
%sEND;`, b.storage.varType, b.storage.getter, b.storage.isEmpty, b.storage.asText, b.body.String())
}
