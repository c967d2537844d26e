package jdbc

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/datazip-inc/oratest/utils/logger"
)

// Querier is the part of *sql.DB, *sql.Tx, *sql.Conn and their sqlx wrappers used by the fixtures
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner starts transactions; satisfied by *sql.DB and *sqlx.DB
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var identifierRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]{0,127}$`)

// ValidIdentifier rejects anything that is not a plain (unquoted) Oracle identifier,
// since table and column names are spliced into SQL text
func ValidIdentifier(identifiers ...string) error {
	for _, identifier := range identifiers {
		if !identifierRegex.MatchString(identifier) {
			return fmt.Errorf("invalid oracle identifier: %q", identifier)
		}
	}
	return nil
}

// Placeholder returns the oracle positional bind for argument i (1 based)
func Placeholder(i int) string {
	return fmt.Sprintf(":%d", i)
}

// escapeLiteral doubles single quotes so text can sit inside a PL/SQL string literal
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// ignoreErrorBlock runs stmt through EXECUTE IMMEDIATE and swallows the given ORA error number
func ignoreErrorBlock(stmt string, oraCode int) string {
	return fmt.Sprintf(`BEGIN
    DECLARE
        e_ignored EXCEPTION;
        PRAGMA EXCEPTION_INIT(e_ignored, -%05d);
    BEGIN
        EXECUTE IMMEDIATE ('%s');
    EXCEPTION
        WHEN e_ignored
        THEN NULL;
    END;
END;`, oraCode, escapeLiteral(stmt))
}

// SQLCreateTable returns a PL/SQL block that drops table (if present) then runs createSQL
func SQLCreateTable(table, createSQL string) string {
	return fmt.Sprintf(`BEGIN
    DECLARE
        e_table_missing EXCEPTION;
        PRAGMA EXCEPTION_INIT(e_table_missing, -00942);
    BEGIN
        EXECUTE IMMEDIATE ('DROP TABLE %s PURGE');
    EXCEPTION
        WHEN e_table_missing
        THEN NULL;
    END;
    EXECUTE IMMEDIATE ('%s');
END;`, table, escapeLiteral(createSQL))
}

// SQLDropTable drops table, ignoring ORA-00942
func SQLDropTable(table string) string {
	return ignoreErrorBlock(fmt.Sprintf("DROP TABLE %s PURGE", table), 942)
}

// OracleServerVersionQuery returns the full five part server version (18c onwards)
func OracleServerVersionQuery() string {
	return `SELECT VERSION_FULL FROM PRODUCT_COMPONENT_VERSION WHERE PRODUCT LIKE 'Oracle%' AND ROWNUM = 1`
}

// OracleLegacyServerVersionQuery is used when VERSION_FULL does not exist (before 18c)
func OracleLegacyServerVersionQuery() string {
	return `SELECT VERSION FROM PRODUCT_COMPONENT_VERSION WHERE PRODUCT LIKE 'Oracle%' AND ROWNUM = 1`
}

// OracleCurrentUserQuery returns the session user
func OracleCurrentUserQuery() string {
	return `SELECT USER FROM DUAL`
}

// WithTransaction runs fn inside a transaction, committing on success and rolling back otherwise
func WithTransaction(ctx context.Context, client TxBeginner, fn func(tx *sql.Tx) error) error {
	tx, err := client.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %s", err)
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			logger.Warnf("transaction rollback failed: %s", rerr)
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
