package testutils

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/pkg/file"
	"github.com/datazip-inc/oratest/utils"
	"github.com/jmoiron/sqlx"
	go_ora "github.com/sijms/go-ora/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	oracleImage       = "gvenzl/oracle-free:23-slim-faststart"
	oracleService     = "FREEPDB1"
	oracleAppUser     = "oratest"
	oraclePassword    = "oratest_pw"
	oracleReadyLog    = "DATABASE IS READY TO USE!"
	oracleStartupWait = 5 * time.Minute
	grantCmd          = `echo "GRANT SODA_APP TO %s; GRANT EXECUTE ON dbms_app_cont TO %s; GRANT CREATE TABLE, CREATE TYPE TO %s;" | sqlplus -s system/%s@localhost:1521/%s`
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TestingT is the part of *testing.T used by the assertion helpers
type TestingT interface {
	Errorf(format string, args ...any)
	FailNow()
	Helper()
}

// AssertThrows fails the test unless fn returns an error whose message matches pattern
func AssertThrows(t TestingT, fn func() error, pattern string) bool {
	t.Helper()
	err := fn()
	if !assert.Error(t, err, "expected an error matching %q", pattern) {
		return false
	}
	return assert.Regexp(t, regexp.MustCompile(pattern), err.Error())
}

// AssertThrowsCtx is AssertThrows for operations taking a context
func AssertThrowsCtx(t TestingT, ctx context.Context, fn func(ctx context.Context) error, pattern string) bool {
	t.Helper()
	return AssertThrows(t, func() error { return fn(ctx) }, pattern)
}

// RequireThrows stops the test when fn does not fail with a matching error
func RequireThrows(t TestingT, fn func() error, pattern string) {
	t.Helper()
	err := fn()
	require.Error(t, err, "expected an error matching %q", pattern)
	if err == nil {
		return
	}
	require.Regexp(t, regexp.MustCompile(pattern), err.Error())
}

// RandomString returns length random alphanumeric characters wrapped in special
func RandomString(length int, special string) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))] // #nosec G404
	}
	return special + string(b) + special
}

// TempFile returns a unique path in the test temp dir, removed when the test ends
func TempFile(t *testing.T, extension string) string {
	t.Helper()
	path := utils.TempFilePath(t.TempDir(), extension)
	t.Cleanup(func() { RequireDelete(t, path) })
	return path
}

// RequireDelete removes path and fails the test when it cannot
func RequireDelete(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, file.Delete(path), "failed to delete %s", path)
}

// TestDB is a connection for integration tests. DBA is nil when no privileged
// connection was configured.
type TestDB struct {
	DB   *sqlx.DB
	DBA  *sqlx.DB
	User string
}

// OracleDB connects to ORATEST_DSN (and ORATEST_DBA_DSN when set), or starts an
// Oracle Free container when ORATEST_CONTAINER=1. Without either the test is skipped.
func OracleDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	if dsn := os.Getenv(constants.EnvDSN); dsn != "" {
		tdb := &TestDB{DB: connect(t, dsn)}
		if dbaDSN := os.Getenv(constants.EnvDSN + "_DBA"); dbaDSN != "" {
			tdb.DBA = connect(t, dbaDSN)
		}
		require.NoError(t, tdb.DB.GetContext(ctx, &tdb.User, "SELECT USER FROM DUAL"))
		return tdb
	}
	if os.Getenv(constants.EnvContainer) != "1" {
		t.Skipf("set %s or %s=1 to run oracle integration tests", constants.EnvDSN, constants.EnvContainer)
	}

	req := testcontainers.ContainerRequest{
		Image:        oracleImage,
		ExposedPorts: []string{"1521/tcp"},
		Env: map[string]string{
			"ORACLE_PASSWORD":   oraclePassword,
			"APP_USER":          oracleAppUser,
			"APP_USER_PASSWORD": oraclePassword,
		},
		WaitingFor: wait.ForLog(oracleReadyLog).WithStartupTimeout(oracleStartupWait),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Container startup failed")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate container: %v", err)
		}
	})

	grant := fmt.Sprintf(grantCmd, oracleAppUser, oracleAppUser, oracleAppUser, oraclePassword, oracleService)
	if code, out, err := utils.ExecCommand(ctx, container, grant); err != nil || code != 0 {
		t.Fatalf("grant failed (%d): %v\n%s", code, err, out)
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1521/tcp")
	require.NoError(t, err)

	return &TestDB{
		DB:   connect(t, go_ora.BuildUrl(host, port.Int(), oracleService, oracleAppUser, oraclePassword, nil)),
		DBA:  connect(t, go_ora.BuildUrl(host, port.Int(), oracleService, "system", oraclePassword, nil)),
		User: oracleAppUser,
	}
}

func connect(t *testing.T, dsn string) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("oracle", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultConnectTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "failed to ping oracle")
	return db
}

// DataFile writes content to a fresh temp file and returns its path
func DataFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, file.Write(path, content))
	return path
}
