package driver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/drivers/abstract"
	"github.com/datazip-inc/oratest/pkg/jdbc"
	"github.com/datazip-inc/oratest/pkg/soda"
	"github.com/datazip-inc/oratest/pkg/txguard"
	"github.com/datazip-inc/oratest/types"
	"github.com/datazip-inc/oratest/utils"
	"github.com/datazip-inc/oratest/utils/logger"
	"github.com/jmoiron/sqlx"
	go_ora "github.com/sijms/go-ora/v2"
	"golang.org/x/crypto/ssh"
)

const driverName = "oracle"

// Oracle runs the fixture operations against an Oracle database through go-ora
type Oracle struct {
	config    *Config
	client    *sqlx.DB
	dba       *sqlx.DB
	sshClient *ssh.Client
}

// GetConfigRef returns a reference to the configuration
func (o *Oracle) GetConfigRef() abstract.Config {
	o.config = &Config{}
	return o.config
}

// Spec returns the configuration specification
func (o *Oracle) Spec() any {
	return Config{}
}

func (o *Oracle) Type() string {
	return string(constants.Oracle)
}

func (o *Oracle) RetryCount() int {
	if o.config == nil {
		return constants.DefaultRetryCount
	}
	return utils.Ternary(o.config.RetryCount <= 0, constants.DefaultRetryCount, o.config.RetryCount).(int)
}

// Setup establishes the test user connection and, when configured, the DBA connection
func (o *Oracle) Setup(ctx context.Context) error {
	o.config.ApplyEnv()
	if err := o.config.Validate(); err != nil {
		return fmt.Errorf("failed to validate config: %s", err)
	}

	if o.config.SSHConfig != nil && o.config.SSHConfig.Host != "" && o.sshClient == nil {
		logger.Info("Found SSH Configuration")
		sshClient, err := o.config.SSHConfig.SetupSSHConnection()
		if err != nil {
			return fmt.Errorf("failed to setup SSH connection: %s", err)
		}
		o.sshClient = sshClient
	}

	client, err := o.open(ctx, o.config.URL())
	if err != nil {
		return err
	}
	client.SetMaxOpenConns(o.config.MaxThreads)

	var dba *sqlx.DB
	if dbaURL := o.config.DBAURL(); dbaURL != "" {
		if dba, err = o.open(ctx, dbaURL); err != nil {
			client.Close()
			return fmt.Errorf("failed to connect dba user: %s", err)
		}
	}

	o.closeClients()
	o.client, o.dba = client, dba
	return nil
}

// open connects through the SSH tunnel when one is set up
func (o *Oracle) open(ctx context.Context, url string) (*sqlx.DB, error) {
	var client *sqlx.DB
	if o.sshClient != nil {
		logger.Info("Connecting to Oracle via SSH tunnel")
		connector := go_ora.NewConnector(url)
		oracleConnector, ok := connector.(*go_ora.OracleConnector)
		if !ok {
			return nil, fmt.Errorf("unexpected go-ora connector type %T", connector)
		}
		oracleConnector.Dialer(&utils.SSHDialer{Client: o.sshClient})
		client = sqlx.NewDb(sql.OpenDB(oracleConnector), driverName)
	} else {
		var err error
		client, err = sqlx.Open(driverName, url)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %s", err)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultConnectTimeout)
	defer cancel()
	if err := client.PingContext(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping database: %s", err)
	}
	return client, nil
}

func (o *Oracle) closeClients() {
	if o.client != nil {
		if err := o.client.Close(); err != nil {
			logger.Warnf("failed to close connection: %s", err)
		}
	}
	if o.dba != nil {
		if err := o.dba.Close(); err != nil {
			logger.Warnf("failed to close dba connection: %s", err)
		}
	}
	o.client, o.dba = nil, nil
}

// Close releases the connections and the SSH tunnel
func (o *Oracle) Close() error {
	o.closeClients()
	if o.sshClient != nil {
		if err := o.sshClient.Close(); err != nil {
			return fmt.Errorf("failed to close ssh client: %s", err)
		}
		o.sshClient = nil
	}
	return nil
}

// Client returns the test user connection
func (o *Oracle) Client() *sqlx.DB {
	return o.client
}

// DBA returns the privileged connection, or nil when none is configured
func (o *Oracle) DBA() *sqlx.DB {
	return o.dba
}

// ServerVersion reads the five part release; databases before 18c lack
// VERSION_FULL and report the plain VERSION column instead
func (o *Oracle) ServerVersion(ctx context.Context) (types.Version, error) {
	var raw string
	err := o.client.QueryRowContext(ctx, jdbc.OracleServerVersionQuery()).Scan(&raw)
	if jdbc.IsOraError(err, constants.ErrInvalidIdentifier) {
		err = o.client.QueryRowContext(ctx, jdbc.OracleLegacyServerVersionQuery()).Scan(&raw)
	}
	if err != nil {
		return types.Version{}, fmt.Errorf("failed to query server version: %s", err)
	}
	return types.ParseVersion(raw)
}

// ClientVersion reports the configured client_version; go-ora has no client library
func (o *Oracle) ClientVersion() (types.Version, bool) {
	if o.config == nil || o.config.ClientVersion == "" {
		return types.Version{}, false
	}
	v, err := types.ParseVersion(o.config.ClientVersion)
	if err != nil {
		return types.Version{}, false
	}
	return v, true
}

func (o *Oracle) SodaRoleGranted(ctx context.Context) (bool, error) {
	return soda.IsRoleGranted(ctx, o.client)
}

func (o *Oracle) CleanupSoda(ctx context.Context) error {
	return soda.Cleanup(ctx, o.client)
}

func (o *Oracle) LTXIDOutcome(ctx context.Context, ltxid []byte) (txguard.Outcome, error) {
	return txguard.GetOutcome(ctx, o.client, ltxid)
}

// CurrentUser returns the session user of the test connection
func (o *Oracle) CurrentUser(ctx context.Context) (string, error) {
	var user string
	if err := o.client.GetContext(ctx, &user, jdbc.OracleCurrentUserQuery()); err != nil {
		return "", fmt.Errorf("failed to get current user: %s", err)
	}
	return user, nil
}

// SetupTransactionGuard grants the test user the TG packages and starts the
// commit outcome service. It needs the DBA connection.
func (o *Oracle) SetupTransactionGuard(ctx context.Context) error {
	if o.dba == nil {
		return fmt.Errorf("transaction guard setup needs dba_username and dba_password")
	}
	user, err := o.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if err := txguard.GrantExecute(ctx, o.dba, user); err != nil {
		return err
	}
	return txguard.CreateService(ctx, o.dba, o.config.TGService, constants.TGRetentionSecs)
}

// TeardownTransactionGuard reverses SetupTransactionGuard, logging and collecting failures
func (o *Oracle) TeardownTransactionGuard(ctx context.Context) error {
	if o.dba == nil {
		return nil
	}
	user, err := o.CurrentUser(ctx)
	if err != nil {
		return err
	}
	revokeErr := txguard.RevokeExecute(ctx, o.dba, user)
	serviceErr := txguard.StopAndDeleteService(ctx, o.dba, o.config.TGService)
	if revokeErr != nil {
		return revokeErr
	}
	return serviceErr
}

// GrantSodaRole grants SODA_APP to the test user through the DBA connection
func (o *Oracle) GrantSodaRole(ctx context.Context) error {
	if o.dba == nil {
		return fmt.Errorf("granting %s needs dba_username and dba_password", constants.SodaRole)
	}
	user, err := o.CurrentUser(ctx)
	if err != nil {
		return err
	}
	return soda.GrantRole(ctx, o.dba, user)
}
