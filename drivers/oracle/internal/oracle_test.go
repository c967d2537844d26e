package driver

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/drivers/abstract"
	"github.com/datazip-inc/oratest/pkg/file"
	"github.com/datazip-inc/oratest/pkg/jdbc"
	"github.com/datazip-inc/oratest/pkg/lob"
	"github.com/datazip-inc/oratest/pkg/soda"
	"github.com/datazip-inc/oratest/pkg/txguard"
	"github.com/datazip-inc/oratest/types"
	"github.com/datazip-inc/oratest/utils"
	"github.com/datazip-inc/oratest/utils/testutils"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "host and service", config: Config{Host: "db", ServiceName: "FREEPDB1", Username: "u"}},
		{name: "host and sid", config: Config{Host: "db", SID: "ORCL", Username: "u"}},
		{name: "connect string only", config: Config{ConnectString: "db:1521/FREEPDB1", Username: "u"}},
		{name: "missing username", config: Config{Host: "db", ServiceName: "FREEPDB1"}, wantErr: true},
		{name: "missing host", config: Config{ServiceName: "FREEPDB1", Username: "u"}, wantErr: true},
		{name: "missing service", config: Config{Host: "db", Username: "u"}, wantErr: true},
		{name: "host with scheme", config: Config{Host: "oracle://db", ServiceName: "S", Username: "u"}, wantErr: true},
		{name: "bad port", config: Config{Host: "db", ServiceName: "S", Username: "u", Port: 70000}, wantErr: true},
		{name: "bad client version", config: Config{Host: "db", ServiceName: "S", Username: "u", ClientVersion: "x.y"}, wantErr: true},
		{name: "dba user without password", config: Config{Host: "db", ServiceName: "S", Username: "u", DBAUsername: "system"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{Host: "db", ServiceName: "FREEPDB1", Username: "u", Password: "p"}
	require.NoError(t, c.Validate())
	assert.Equal(t, constants.DefaultOraclePort, c.Port)
	assert.Equal(t, constants.DefaultThreadCount, c.MaxThreads)
	assert.Equal(t, constants.TGServiceName, c.TGService)
	assert.Contains(t, c.URL(), "oracle://u:p@db:1521/FREEPDB1")
	assert.Empty(t, c.DBAURL())

	c.DBAUsername, c.DBAPassword = "system", "secret"
	assert.Contains(t, c.DBAURL(), "oracle://system:secret@db:1521/FREEPDB1")
}

func TestConfigFromFileAndEnv(t *testing.T) {
	path := testutils.DataFile(t, "oracle.json", []byte(`{
		"host": "db",
		"service_name": "FREEPDB1",
		"username": "oratest",
		"password": "from-file",
		"client_version": "19.3"
	}`))

	o := &Oracle{}
	require.NoError(t, utils.UnmarshalFile(path, o.GetConfigRef()))
	assert.Equal(t, "from-file", o.config.Password)

	t.Setenv("ORATEST_PASSWORD", "from-env")
	t.Setenv("ORATEST_PORT", "1600")
	o.config.ApplyEnv()
	require.NoError(t, o.config.Validate())
	assert.Equal(t, "from-env", o.config.Password)
	assert.Equal(t, 1600, o.config.Port)

	client, found := o.ClientVersion()
	require.True(t, found)
	assert.Equal(t, types.MustParseVersion("19.3"), client)
}

func mockOracle(t *testing.T) (*Oracle, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Oracle{config: &Config{TGService: "svc"}, client: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestServerVersion(t *testing.T) {
	ctx := context.Background()

	o, mock := mockOracle(t)
	mock.ExpectQuery(jdbc.OracleServerVersionQuery()).
		WillReturnRows(sqlmock.NewRows([]string{"VERSION_FULL"}).AddRow("19.21.0.0.0"))
	v, err := o.ServerVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "19.21.0.0.0", v.String())

	o, mock = mockOracle(t)
	mock.ExpectQuery(jdbc.OracleServerVersionQuery()).
		WillReturnError(fmt.Errorf(`ORA-00904: "VERSION_FULL": invalid identifier`))
	mock.ExpectQuery(jdbc.OracleLegacyServerVersionQuery()).
		WillReturnRows(sqlmock.NewRows([]string{"VERSION"}).AddRow("12.2.0.1.0"))
	v, err = o.ServerVersion(ctx)
	require.NoError(t, err)
	assert.False(t, v.AtLeast(soda.MinVersion))
	require.NoError(t, mock.ExpectationsWereMet())

	o, mock = mockOracle(t)
	mock.ExpectQuery(jdbc.OracleServerVersionQuery()).WillReturnError(sql.ErrConnDone)
	_, err = o.ServerVersion(ctx)
	require.Error(t, err)
}

func TestPrerequisitesThroughAbstract(t *testing.T) {
	ctx := context.Background()
	o, mock := mockOracle(t)
	o.config.ClientVersion = "18.3"

	mock.ExpectQuery(jdbc.OracleServerVersionQuery()).
		WillReturnRows(sqlmock.NewRows([]string{"VERSION_FULL"}).AddRow("18.3.0.0.0"))
	mock.ExpectQuery(jdbc.SodaRoleGrantedQuery()).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT"}).AddRow(1))

	runnable, err := abstract.NewAbstractDriver(ctx, o).IsSodaRunnable(ctx)
	require.NoError(t, err)
	assert.True(t, runnable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionGuardNeedsDBA(t *testing.T) {
	ctx := context.Background()
	o, _ := mockOracle(t)
	testutils.AssertThrows(t, func() error { return o.SetupTransactionGuard(ctx) }, "dba_username")
	testutils.AssertThrows(t, func() error { return o.GrantSodaRole(ctx) }, constants.SodaRole)
	require.NoError(t, o.TeardownTransactionGuard(ctx))
}

func TestRetryCountAndClose(t *testing.T) {
	o := &Oracle{}
	assert.Equal(t, constants.DefaultRetryCount, o.RetryCount())
	o.config = &Config{RetryCount: 5}
	assert.Equal(t, 5, o.RetryCount())
	assert.Equal(t, "oracle", o.Type())
	require.NoError(t, o.Close())
}

// integration tests below need ORATEST_DSN or ORATEST_CONTAINER=1

func integrationOracle(t *testing.T) *Oracle {
	t.Helper()
	tdb := testutils.OracleDB(t)
	return &Oracle{
		config: &Config{TGService: constants.TGServiceName},
		client: tdb.DB,
		dba:    tdb.DBA,
	}
}

func TestLobRoundTripIntegration(t *testing.T) {
	ctx := context.Background()
	o := integrationOracle(t)

	table := utils.UniqueName("NODB_BLOB")
	_, err := o.client.ExecContext(ctx, jdbc.SQLCreateTable(table,
		fmt.Sprintf("CREATE TABLE %s (id NUMBER, content BLOB)", table)))
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = o.client.ExecContext(ctx, jdbc.SQLDropTable(table)) })

	content := []byte(testutils.RandomString(65536, ""))[:65536]
	src := testutils.DataFile(t, "blob.bin", content)
	target := lob.Target{Table: table, KeyColumn: "ID", LobColumn: "CONTENT", Kind: jdbc.BLOB}

	written, err := lob.StreamFile(ctx, o.client, target, 1, src)
	require.NoError(t, err)
	assert.EqualValues(t, 65536, written)

	length, err := lob.Length(ctx, o.client, target, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 65536, length)

	dst := testutils.TempFile(t, "bin")
	_, err = lob.ToFile(ctx, o.client, target, 1, dst)
	require.NoError(t, err)
	got, err := file.Read(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSodaIntegration(t *testing.T) {
	ctx := context.Background()
	o := integrationOracle(t)
	a := abstract.NewAbstractDriver(ctx, o)

	runnable, err := a.IsSodaRunnable(ctx)
	require.NoError(t, err)
	if !runnable {
		t.Skip("SODA needs 18.3 and the SODA_APP role")
	}
	require.NoError(t, a.CleanupSoda(ctx))
	t.Cleanup(func() { require.NoError(t, a.CleanupSoda(ctx)) })

	db := soda.NewDatabase(o.client)
	coll, err := db.CreateCollection(ctx, utils.UniqueName("soda_test"), nil)
	require.NoError(t, err)

	n, err := coll.InsertMany(ctx, testutils.Contents())
	require.NoError(t, err)
	assert.Equal(t, len(testutils.TContents), n)

	testutils.AssertThrowsCtx(t, ctx, func(ctx context.Context) error {
		_, err := coll.Find().Skip(3).Count(ctx)
		return err
	}, constants.ErrSkipLimitCount)

	count, err := coll.Find().Filter(map[string]any{"office": "Shenzhen"}).Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	offices, err := db.CreateCollection(ctx, utils.UniqueName("soda_geo"), nil)
	require.NoError(t, err)
	_, err = offices.InsertMany(ctx, testutils.SpatialContents())
	require.NoError(t, err)
	count, err = offices.Find().Filter(testutils.NearFilter(testutils.TContentsSpatial[3].Geometry, 500)).Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "only London lies within 500 km of London")

	server, err := o.ServerVersion(ctx)
	require.NoError(t, err)
	if !server.AtLeast(types.MustParseVersion(constants.EmbeddedOIDMinVersion)) {
		return
	}
	oidColl, err := db.CreateCollection(ctx, utils.UniqueName("soda_oid"), &types.CollectionMetadata{
		KeyColumn: &types.KeyColumn{AssignmentMethod: types.KeyEmbeddedOID},
	})
	require.NoError(t, err)
	doc, err := oidColl.InsertOneAndGet(ctx, map[string]any{"_id": "abc", "name": "Alex"})
	require.NoError(t, err)
	assert.Equal(t, types.EmbeddedOIDKey("abc"), strings.ToLower(doc.Key))

	// without _id the server generates one and derives the key from it
	doc, err = oidColl.InsertOneAndGet(ctx, map[string]any{"name": "Alex"})
	require.NoError(t, err)
	read, err := oidColl.Find().Key(doc.Key).GetOne(ctx)
	require.NoError(t, err)
	require.NotNil(t, read)
	var content struct {
		ID string `json:"_id"`
	}
	require.NoError(t, read.ContentAs(&content))
	assert.Equal(t, types.GeneratedOIDKey(content.ID), strings.ToLower(doc.Key))
}

func TestTransactionGuardIntegration(t *testing.T) {
	if os.Getenv(constants.EnvTGConnectString) == "" {
		t.Skipf("set %s to a service with COMMIT_OUTCOME enabled", constants.EnvTGConnectString)
	}
	ctx := context.Background()
	o := integrationOracle(t)
	if o.dba == nil {
		t.Skip("transaction guard tests need a dba connection")
	}
	require.NoError(t, o.SetupTransactionGuard(ctx))
	t.Cleanup(func() { require.NoError(t, o.TeardownTransactionGuard(ctx)) })

	tests := []struct {
		name      string
		failpoint txguard.Failpoint
		committed bool
	}{
		{name: "pre commit", failpoint: txguard.PreCommit, committed: false},
		{name: "post commit", failpoint: txguard.PostCommit, committed: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// each case breaks its session, so it gets a pool of its own
			tg, err := sqlx.Open(driverName, os.Getenv(constants.EnvTGConnectString))
			require.NoError(t, err)
			defer tg.Close()

			table := utils.UniqueName("NODB_TG")
			_, err = tg.ExecContext(ctx, jdbc.SQLCreateTable(table, fmt.Sprintf("CREATE TABLE %s (id NUMBER)", table)))
			require.NoError(t, err)
			defer func() { _, _ = o.client.ExecContext(ctx, jdbc.SQLDropTable(table)) }()

			err = txguard.CommitAfterFailpoint(ctx, tg, tc.failpoint, func(tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (1)", table))
				return err
			})
			require.Error(t, err)
			assert.True(t, txguard.IsConnectionBroken(err), "unexpected commit error: %s", err)

			var rows int
			require.NoError(t, o.client.GetContext(ctx, &rows, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)))
			assert.Equal(t, utils.Ternary(tc.committed, 1, 0).(int), rows)

			// the session ltxid is not exposed by go-ora; a caller captured one per failpoint
			if ltxid := os.Getenv("ORATEST_LTXID_" + strings.ToUpper(string(tc.failpoint))); ltxid != "" {
				outcome, err := abstract.NewAbstractDriver(ctx, o).LTXIDOutcome(ctx, ltxid)
				require.NoError(t, err)
				assert.Equal(t, tc.committed, outcome.Committed)
			}
		})
	}
}
