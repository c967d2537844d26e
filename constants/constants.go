package constants

import (
	"time"
)

const (
	DefaultRetryCount     = 3
	DefaultThreadCount    = 3
	DefaultConnectTimeout = 10 * time.Second
	DefaultRetryBackoff   = 2 * time.Second
	DefaultCommandTimeout = 5 * time.Minute
	DefaultOraclePort     = 1521
	ConfigFolder          = "CONFIG_FOLDER"
	EnvPrefix             = "ORATEST"
	// EnvDSN holds a complete go-ora url used by integration tests
	EnvDSN = "ORATEST_DSN"
	// EnvContainer starts an Oracle Free container for integration tests when set to "1"
	EnvContainer = "ORATEST_CONTAINER"
	// EnvTGConnectString points at a service with COMMIT_OUTCOME enabled
	EnvTGConnectString = "ORATEST_CONNECTSTRING_TG"

	// SODA needs Oracle Client and Database 18.3 or later
	SodaMinVersion = "18.3"
	// Transaction Guard needs Oracle Client and Database 12.1 or later
	TGMinVersion = "12.1"
	// EMBEDDED_OID collections need 23ai
	EmbeddedOIDMinVersion = "23"

	SodaRole        = "SODA_APP"
	TGServiceName   = "orcl-test-tg"
	TGRetentionSecs = 604800

	// PL/SQL and SQL literal limits used when chunking LOB traffic
	BlobWriteChunk = 32767
	ClobWriteChunk = 8191
	BlobReadChunk  = 2000
	ClobReadChunk  = 1000

	DefaultFileMode = 0o644
)

// OraErrorRegex matches an Oracle error code prefix such as "ORA-40748:"
const OraErrorRegex = `(ORA|PLS|DPI|NJS|DPY)-(\d{5}|\d{3}):`

const (
	ErrTableMissing      = "ORA-00942"
	ErrInvalidIdentifier = "ORA-00904"
	ErrSkipLimitCount    = "ORA-40748"
	ErrEndOfFile         = "ORA-03113"
	ErrNotConnected      = "ORA-03114"
	ErrConnectionLost    = "ORA-03135"
	// ErrCollectionMissing is raised by the generated drop block when DBMS_SODA reports nothing dropped
	ErrCollectionMissing = "ORA-20404"
)

// NonRetryableErrors are never retried while connecting
var NonRetryableErrors = []string{
	"ORA-01017", // invalid username/password
	"ORA-28000", // account locked
	"ORA-12514", // unknown service
}

type DriverType string

const (
	Oracle DriverType = "oracle"
)
