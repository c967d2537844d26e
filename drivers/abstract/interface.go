package abstract

import (
	"context"

	"github.com/datazip-inc/oratest/pkg/txguard"
	"github.com/datazip-inc/oratest/types"
)

type Config interface {
	Validate() error
}

// DriverInterface is implemented by every database the fixtures can run against
type DriverInterface interface {
	GetConfigRef() Config
	Spec() any
	Type() string
	// Setup opens the connections described by the config
	Setup(ctx context.Context) error
	Close() error
	// RetryCount is the number of extra connection attempts on transient errors
	RetryCount() int

	ServerVersion(ctx context.Context) (types.Version, error)
	// ClientVersion returns false when the driver has no client library to report
	ClientVersion() (types.Version, bool)

	SodaRoleGranted(ctx context.Context) (bool, error)
	CleanupSoda(ctx context.Context) error
	LTXIDOutcome(ctx context.Context, ltxid []byte) (txguard.Outcome, error)

	// privileged helpers, they need the DBA connection
	GrantSodaRole(ctx context.Context) error
	SetupTransactionGuard(ctx context.Context) error
	TeardownTransactionGuard(ctx context.Context) error
}
