package jdbc

import (
	"fmt"
	"strings"
)

// LobKind is the declared type of a LOB column
type LobKind string

const (
	BLOB LobKind = "BLOB"
	CLOB LobKind = "CLOB"
)

func (k LobKind) emptyLocator() string {
	if k == CLOB {
		return "EMPTY_CLOB()"
	}
	return "EMPTY_BLOB()"
}

// SODA Specific Queries

// SodaListCollectionsQuery returns the names of all collections of the current user
func SodaListCollectionsQuery() string {
	return `SELECT URI_NAME FROM USER_SODA_COLLECTIONS ORDER BY URI_NAME`
}

// SodaCollectionInfoQuery returns the backing table and content column type of a collection
func SodaCollectionInfoQuery() string {
	return `SELECT OBJECT_NAME, NVL(JSON_VALUE(JSON_DESCRIPTOR, '$.contentColumn.sqlType'), 'BLOB') FROM USER_SODA_COLLECTIONS WHERE URI_NAME = :1`
}

// SodaCreateCollectionBlock creates (or opens, when metadata matches) a collection
func SodaCreateCollectionBlock() string {
	return `DECLARE
    v_coll SODA_COLLECTION_T;
BEGIN
    v_coll := DBMS_SODA.CREATE_COLLECTION(:1, :2);
END;`
}

// SodaDropCollectionBlock drops a collection and raises ORA-20404 when nothing was dropped
func SodaDropCollectionBlock() string {
	return `DECLARE
    v_status NUMBER;
BEGIN
    v_status := DBMS_SODA.DROP_COLLECTION(:1);
    IF v_status = 0 THEN
        RAISE_APPLICATION_ERROR(-20404, 'collection not found');
    END IF;
END;`
}

// SodaListIndexesQuery returns the indexes of a collection table, without its primary key index
func SodaListIndexesQuery() string {
	return `SELECT INDEX_NAME FROM USER_INDEXES
WHERE TABLE_NAME = :1
AND INDEX_TYPE <> 'LOB'
AND INDEX_NAME NOT IN (SELECT INDEX_NAME FROM USER_CONSTRAINTS WHERE TABLE_NAME = :2 AND CONSTRAINT_TYPE = 'P' AND INDEX_NAME IS NOT NULL)
ORDER BY INDEX_NAME`
}

// SodaRoleGrantedQuery counts SODA_APP grants of the current user
func SodaRoleGrantedQuery() string {
	return `SELECT COUNT(*) FROM USER_ROLE_PRIVS WHERE GRANTED_ROLE = 'SODA_APP'`
}

// GrantRoleQuery grants role to user
func GrantRoleQuery(role, user string) (string, error) {
	if err := ValidIdentifier(role, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("GRANT %s TO %s", role, user), nil
}

// LOB Specific Queries

// LobInsertEmptyQuery inserts a row holding an empty locator
func LobInsertEmptyQuery(table, keyColumn, lobColumn string, kind LobKind) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (:1, %s)", table, keyColumn, lobColumn, kind.emptyLocator())
}

// LobAppendBlock appends :3 (of length :2, bytes for BLOB and characters for CLOB) to the locked locator of row :1
func LobAppendBlock(table, keyColumn, lobColumn string, kind LobKind) string {
	return fmt.Sprintf(`DECLARE
    v_lob %s;
BEGIN
    SELECT %s INTO v_lob FROM %s WHERE %s = :1 FOR UPDATE;
    DBMS_LOB.WRITEAPPEND(v_lob, :2, :3);
END;`, kind, lobColumn, table, keyColumn)
}

// LobReadChunkQuery reads :1 units starting at offset :2 (1 based) from row :3
func LobReadChunkQuery(table, keyColumn, lobColumn string) string {
	return fmt.Sprintf("SELECT DBMS_LOB.SUBSTR(%s, :1, :2) FROM %s WHERE %s = :3", lobColumn, table, keyColumn)
}

// LobLengthQuery returns the LOB length of row :1
func LobLengthQuery(table, keyColumn, lobColumn string) string {
	return fmt.Sprintf("SELECT NVL(DBMS_LOB.GETLENGTH(%s), 0) FROM %s WHERE %s = :1", lobColumn, table, keyColumn)
}

// LobCompareQuery compares the LOBs of rows :1 and :2; the first column is 0 when equal
func LobCompareQuery(table, keyColumn, lobColumn string) string {
	return fmt.Sprintf(`SELECT NVL(DBMS_LOB.COMPARE(a.%[3]s, b.%[3]s), -1), NVL(DBMS_LOB.GETLENGTH(a.%[3]s), 0)
FROM %[1]s a, %[1]s b WHERE a.%[2]s = :1 AND b.%[2]s = :2`, table, keyColumn, lobColumn)
}

// Transaction Guard Specific Queries

// TGSetFailpointBlock arms a DBMS_TG_DBG failpoint (pre_commit or post_commit) for the next commit
func TGSetFailpointBlock(failpoint string) (string, error) {
	failpoint = strings.ToLower(failpoint)
	if failpoint != "pre_commit" && failpoint != "post_commit" {
		return "", fmt.Errorf("unknown transaction guard failpoint: %s", failpoint)
	}
	return fmt.Sprintf(`BEGIN
    DBMS_TG_DBG.SET_FAILPOINT(DBMS_TG_DBG.TG_FAILPOINT_%s);
END;`, strings.ToUpper(failpoint)), nil
}

// TGOutcomeBlock reports the outcome of LTXID :1 as numbers :2 (committed) and :3 (completed)
func TGOutcomeBlock() string {
	return `DECLARE
    v_committed BOOLEAN;
    v_completed BOOLEAN;
BEGIN
    DBMS_APP_CONT.GET_LTXID_OUTCOME(:1, v_committed, v_completed);
    :2 := CASE WHEN v_committed THEN 1 ELSE 0 END;
    :3 := CASE WHEN v_completed THEN 1 ELSE 0 END;
END;`
}

// TGCreateServiceBlock creates and starts a service with commit outcome retention
func TGCreateServiceBlock(service string, retentionSeconds int) string {
	return fmt.Sprintf(`DECLARE
    params DBMS_SERVICE.SVC_PARAMETER_ARRAY;
BEGIN
    params('COMMIT_OUTCOME') := 'true';
    params('RETENTION_TIMEOUT') := %d;
    DBMS_SERVICE.CREATE_SERVICE('%s', '%s', params);
    DBMS_SERVICE.START_SERVICE('%s');
END;`, retentionSeconds, escapeLiteral(service), escapeLiteral(service), escapeLiteral(service))
}

// TGStopServiceBlock stops service :1
func TGStopServiceBlock() string {
	return `BEGIN DBMS_SERVICE.STOP_SERVICE(:1); END;`
}

// TGDeleteServiceBlock deletes service :1
func TGDeleteServiceBlock() string {
	return `BEGIN DBMS_SERVICE.DELETE_SERVICE(:1); END;`
}

// GrantExecuteQuery grants execute on a package
func GrantExecuteQuery(pkg, user string) (string, error) {
	if err := ValidIdentifier(pkg, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("GRANT EXECUTE ON %s TO %s", pkg, user), nil
}

// RevokeExecuteQuery revokes execute on a package
func RevokeExecuteQuery(pkg, user string) (string, error) {
	if err := ValidIdentifier(pkg, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("REVOKE EXECUTE ON %s FROM %s", pkg, user), nil
}
