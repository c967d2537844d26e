package abstract

import (
	"context"
	"fmt"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/pkg/soda"
	"github.com/datazip-inc/oratest/pkg/txguard"
	"github.com/datazip-inc/oratest/types"
	"github.com/datazip-inc/oratest/utils/backoff"
	"github.com/datazip-inc/oratest/utils/logger"
	"github.com/hashicorp/go-multierror"
)

// retryBackoff is the first wait between connection attempts; it doubles after each one
var retryBackoff = constants.DefaultRetryBackoff

type AbstractDriver struct { //nolint:gosec,revive
	driver DriverInterface
}

// Prerequisites summarises which feature suites can run against the configured database
type Prerequisites struct {
	ServerVersion   string `json:"server_version"`
	ClientVersion   string `json:"client_version,omitempty"`
	SodaSupported   bool   `json:"soda_supported"`
	SodaRoleGranted bool   `json:"soda_role_granted"`
	SodaRunnable    bool   `json:"soda_runnable"`
	TGSupported     bool   `json:"transaction_guard_supported"`
}

func NewAbstractDriver(_ context.Context, driver DriverInterface) *AbstractDriver {
	return &AbstractDriver{driver: driver}
}

func (a *AbstractDriver) GetConfigRef() Config {
	return a.driver.GetConfigRef()
}

func (a *AbstractDriver) Spec() any {
	return a.driver.Spec()
}

func (a *AbstractDriver) Type() string {
	return a.driver.Type()
}

// Setup connects, retrying transient failures with exponential backoff
func (a *AbstractDriver) Setup(ctx context.Context) error {
	return backoff.RetryContext(ctx, a.driver.RetryCount()+1, retryBackoff, a.driver.Setup, IsRetryable)
}

func (a *AbstractDriver) Close() error {
	return a.driver.Close()
}

// CheckVersions reports whether both client and server are at least required.
// When the driver has no client library only the server is checked.
func (a *AbstractDriver) CheckVersions(ctx context.Context, required types.Version) (bool, error) {
	server, err := a.driver.ServerVersion(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get server version: %s", err)
	}
	if !server.AtLeast(required) {
		logger.Infof("server version %s is below the required %s", server, required)
		return false, nil
	}
	if client, found := a.driver.ClientVersion(); found && !client.AtLeast(required) {
		logger.Infof("client version %s is below the required %s", client, required)
		return false, nil
	}
	return true, nil
}

// IsSodaRunnable requires SODA capable versions and the SODA_APP role
func (a *AbstractDriver) IsSodaRunnable(ctx context.Context) (bool, error) {
	supported, err := a.CheckVersions(ctx, soda.MinVersion)
	if err != nil || !supported {
		return false, err
	}
	return a.driver.SodaRoleGranted(ctx)
}

// Check collects the prerequisites of every feature suite
func (a *AbstractDriver) Check(ctx context.Context) (*Prerequisites, error) {
	server, err := a.driver.ServerVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get server version: %s", err)
	}
	result := &Prerequisites{ServerVersion: server.String()}
	if client, found := a.driver.ClientVersion(); found {
		result.ClientVersion = client.String()
	}

	if result.SodaSupported, err = a.CheckVersions(ctx, soda.MinVersion); err != nil {
		return nil, err
	}
	if result.SodaRoleGranted, err = a.driver.SodaRoleGranted(ctx); err != nil {
		logger.Warnf("failed to check %s role: %s", constants.SodaRole, err)
	}
	result.SodaRunnable = result.SodaSupported && result.SodaRoleGranted

	if result.TGSupported, err = a.CheckVersions(ctx, txguard.MinVersion); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *AbstractDriver) CleanupSoda(ctx context.Context) error {
	return a.driver.CleanupSoda(ctx)
}

func (a *AbstractDriver) LTXIDOutcome(ctx context.Context, ltxid string) (txguard.Outcome, error) {
	raw, err := txguard.ParseLTXID(ltxid)
	if err != nil {
		return txguard.Outcome{}, err
	}
	return a.driver.LTXIDOutcome(ctx, raw)
}

// Prepare grants the SODA role and starts the Transaction Guard service for the test user
func (a *AbstractDriver) Prepare(ctx context.Context) error {
	if err := a.driver.GrantSodaRole(ctx); err != nil {
		return fmt.Errorf("failed to grant %s: %s", constants.SodaRole, err)
	}
	if err := a.driver.SetupTransactionGuard(ctx); err != nil {
		return fmt.Errorf("failed to setup transaction guard: %s", err)
	}
	return nil
}

// Teardown drops leftover SODA collections and removes the Transaction Guard service.
// Both steps run even when the first fails.
func (a *AbstractDriver) Teardown(ctx context.Context) error {
	var result *multierror.Error
	if err := a.driver.CleanupSoda(ctx); err != nil {
		logger.Warnf("soda cleanup failed: %s", err)
		result = multierror.Append(result, err)
	}
	if err := a.driver.TeardownTransactionGuard(ctx); err != nil {
		logger.Warnf("transaction guard teardown failed: %s", err)
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
