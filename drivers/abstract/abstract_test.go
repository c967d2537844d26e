package abstract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datazip-inc/oratest/pkg/txguard"
	"github.com/datazip-inc/oratest/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	server      string
	client      string
	roleGranted bool
	retries     int
	setupErrs   []error
	setupCalls  int
	ltxid       []byte
	cleanupErr  error
	steps       []string
}

func (f *fakeDriver) GetConfigRef() Config { return nil }
func (f *fakeDriver) Spec() any            { return nil }
func (f *fakeDriver) Type() string         { return "fake" }
func (f *fakeDriver) Close() error         { return nil }
func (f *fakeDriver) RetryCount() int      { return f.retries }

func (f *fakeDriver) Setup(context.Context) error {
	f.setupCalls++
	if len(f.setupErrs) == 0 {
		return nil
	}
	err := f.setupErrs[0]
	f.setupErrs = f.setupErrs[1:]
	return err
}

func (f *fakeDriver) ServerVersion(context.Context) (types.Version, error) {
	return types.ParseVersion(f.server)
}

func (f *fakeDriver) ClientVersion() (types.Version, bool) {
	if f.client == "" {
		return types.Version{}, false
	}
	return types.MustParseVersion(f.client), true
}

func (f *fakeDriver) SodaRoleGranted(context.Context) (bool, error) { return f.roleGranted, nil }

func (f *fakeDriver) CleanupSoda(context.Context) error {
	f.steps = append(f.steps, "cleanup")
	return f.cleanupErr
}

func (f *fakeDriver) GrantSodaRole(context.Context) error {
	f.steps = append(f.steps, "grant")
	return nil
}

func (f *fakeDriver) SetupTransactionGuard(context.Context) error {
	f.steps = append(f.steps, "tg-setup")
	return nil
}

func (f *fakeDriver) TeardownTransactionGuard(context.Context) error {
	f.steps = append(f.steps, "tg-teardown")
	return nil
}

func (f *fakeDriver) LTXIDOutcome(_ context.Context, ltxid []byte) (txguard.Outcome, error) {
	f.ltxid = ltxid
	return txguard.Outcome{Committed: true, Completed: true}, nil
}

func TestCheckVersions(t *testing.T) {
	required := types.MustParseVersion("18.3")
	tests := []struct {
		name   string
		server string
		client string
		want   bool
	}{
		{name: "both exactly minimum", server: "18.3.0.0.0", client: "18.3.0.0.0", want: true},
		{name: "server below", server: "18.2.0.0.0", client: "19.3", want: false},
		{name: "client below", server: "19.3.0.0.0", client: "12.2.0.1.0", want: false},
		{name: "thin driver checks server only", server: "23.4.0.24.5", want: true},
		{name: "thin driver old server", server: "12.1.0.2.0", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAbstractDriver(context.Background(), &fakeDriver{server: tc.server, client: tc.client})
			got, err := a.CheckVersions(context.Background(), required)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	a := NewAbstractDriver(context.Background(), &fakeDriver{server: "garbage"})
	_, err := a.CheckVersions(context.Background(), required)
	require.Error(t, err)
}

func TestIsSodaRunnableAndCheck(t *testing.T) {
	ctx := context.Background()
	a := NewAbstractDriver(ctx, &fakeDriver{server: "19.3", roleGranted: false})
	runnable, err := a.IsSodaRunnable(ctx)
	require.NoError(t, err)
	assert.False(t, runnable)

	a = NewAbstractDriver(ctx, &fakeDriver{server: "19.3", roleGranted: true})
	runnable, err = a.IsSodaRunnable(ctx)
	require.NoError(t, err)
	assert.True(t, runnable)

	result, err := a.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Prerequisites{
		ServerVersion:   "19.3.0.0.0",
		SodaSupported:   true,
		SodaRoleGranted: true,
		SodaRunnable:    true,
		TGSupported:     true,
	}, result)
}

func TestSetupRetries(t *testing.T) {
	retryBackoff = time.Millisecond
	ctx := context.Background()

	driver := &fakeDriver{retries: 3, setupErrs: []error{errors.New("ORA-12541: no listener"), errors.New("ORA-12541: no listener")}}
	require.NoError(t, NewAbstractDriver(ctx, driver).Setup(ctx))
	assert.Equal(t, 3, driver.setupCalls)

	driver = &fakeDriver{retries: 3, setupErrs: []error{errors.New("ORA-01017: invalid username/password; logon denied")}}
	require.Error(t, NewAbstractDriver(ctx, driver).Setup(ctx))
	assert.Equal(t, 1, driver.setupCalls)
}

func TestLTXIDOutcome(t *testing.T) {
	ctx := context.Background()
	driver := &fakeDriver{}
	outcome, err := NewAbstractDriver(ctx, driver).LTXIDOutcome(ctx, "0102ff")
	require.NoError(t, err)
	assert.True(t, outcome.Committed)
	assert.Equal(t, []byte{0x01, 0x02, 0xff}, driver.ltxid)

	_, err = NewAbstractDriver(ctx, driver).LTXIDOutcome(ctx, "not-hex")
	require.Error(t, err)
}

func TestPrepareAndTeardown(t *testing.T) {
	ctx := context.Background()
	driver := &fakeDriver{}
	a := NewAbstractDriver(ctx, driver)
	require.NoError(t, a.Prepare(ctx))
	require.NoError(t, a.Teardown(ctx))
	assert.Equal(t, []string{"grant", "tg-setup", "cleanup", "tg-teardown"}, driver.steps)

	driver = &fakeDriver{cleanupErr: errors.New("ORA-20404: collection not dropped")}
	err := NewAbstractDriver(ctx, driver).Teardown(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORA-20404")
	assert.Equal(t, []string{"cleanup", "tg-teardown"}, driver.steps)
}
