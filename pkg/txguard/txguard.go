// Package txguard exercises Transaction Guard: it arms commit failpoints,
// asks the server for the outcome of a logical transaction and manages the
// service and grants the feature depends on.
package txguard

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/pkg/jdbc"
	"github.com/datazip-inc/oratest/types"
	"github.com/datazip-inc/oratest/utils/logger"
	"github.com/hashicorp/go-multierror"
	go_ora "github.com/sijms/go-ora/v2"
)

// Failpoint selects where DBMS_TG_DBG breaks the next commit
type Failpoint string

const (
	PreCommit  Failpoint = "pre_commit"
	PostCommit Failpoint = "post_commit"
)

// Packages the test user needs execute on
var Packages = []string{"dbms_tg_dbg", "dbms_app_cont"}

// MinVersion is the lowest client and server release supporting Transaction Guard
var MinVersion = types.MustParseVersion(constants.TGMinVersion)

// Outcome is the server's verdict on a logical transaction
type Outcome struct {
	Committed bool
	Completed bool
}

func (o Outcome) String() string {
	return fmt.Sprintf("committed=%t completed=%t", o.Committed, o.Completed)
}

// SetFailpoint arms fp for the next commit of the session behind q
func SetFailpoint(ctx context.Context, q jdbc.Querier, fp Failpoint) error {
	block, err := jdbc.TGSetFailpointBlock(string(fp))
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, block); err != nil {
		return fmt.Errorf("failed to set %s failpoint: %s", fp, err)
	}
	return nil
}

// CommitAfterFailpoint runs fn in a transaction, arms fp and commits. The
// commit error is returned as is so callers can check IsConnectionBroken; a
// nil error means the failpoint did not fire.
func CommitAfterFailpoint(ctx context.Context, db jdbc.TxBeginner, fp Failpoint, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %s", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := SetFailpoint(ctx, tx, fp); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetOutcome asks DBMS_APP_CONT whether the logical transaction ltxid committed
// and ran to completion. It must run on a session other than the failed one.
func GetOutcome(ctx context.Context, q jdbc.Querier, ltxid []byte) (Outcome, error) {
	if len(ltxid) == 0 {
		return Outcome{}, fmt.Errorf("ltxid must not be empty")
	}
	var committed, completed int64
	_, err := q.ExecContext(ctx, jdbc.TGOutcomeBlock(), ltxid, go_ora.Out{Dest: &committed}, go_ora.Out{Dest: &completed})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to get ltxid outcome: %w", err)
	}
	return Outcome{Committed: committed == 1, Completed: completed == 1}, nil
}

// ParseLTXID decodes a hex encoded logical transaction id
func ParseLTXID(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid ltxid %q: %s", s, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("ltxid must not be empty")
	}
	return b, nil
}

var brokenConnectionCodes = []string{constants.ErrEndOfFile, constants.ErrNotConnected, constants.ErrConnectionLost}

// IsConnectionBroken reports whether err means the session is gone, which is
// what a commit failpoint produces
func IsConnectionBroken(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	code := jdbc.OraCode(err)
	for _, broken := range brokenConnectionCodes {
		if code == broken {
			return true
		}
	}
	return strings.Contains(err.Error(), "NJS-500")
}

// CreateService creates and starts a service with commit outcome retention
func CreateService(ctx context.Context, dba jdbc.Querier, service string, retentionSeconds int) error {
	if _, err := dba.ExecContext(ctx, jdbc.TGCreateServiceBlock(service, retentionSeconds)); err != nil {
		return fmt.Errorf("failed to create service[%s]: %s", service, err)
	}
	logger.Infof("created transaction guard service[%s] with retention %ds", service, retentionSeconds)
	return nil
}

// StopAndDeleteService tears the service down, attempting the delete even when the stop fails
func StopAndDeleteService(ctx context.Context, dba jdbc.Querier, service string) error {
	var result *multierror.Error
	if _, err := dba.ExecContext(ctx, jdbc.TGStopServiceBlock(), service); err != nil {
		logger.Warnf("failed to stop service[%s]: %s", service, err)
		result = multierror.Append(result, err)
	}
	if _, err := dba.ExecContext(ctx, jdbc.TGDeleteServiceBlock(), service); err != nil {
		logger.Warnf("failed to delete service[%s]: %s", service, err)
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// GrantExecute grants execute on every package in Packages
func GrantExecute(ctx context.Context, dba jdbc.Querier, user string) error {
	for _, pkg := range Packages {
		query, err := jdbc.GrantExecuteQuery(pkg, user)
		if err != nil {
			return err
		}
		if _, err := dba.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to grant execute on %s to %s: %s", pkg, user, err)
		}
	}
	return nil
}

// RevokeExecute revokes what GrantExecute granted, continuing past failures
func RevokeExecute(ctx context.Context, dba jdbc.Querier, user string) error {
	var result *multierror.Error
	for _, pkg := range Packages {
		query, err := jdbc.RevokeExecuteQuery(pkg, user)
		if err != nil {
			return err
		}
		if _, err := dba.ExecContext(ctx, query); err != nil {
			logger.Warnf("failed to revoke execute on %s from %s: %s", pkg, user, err)
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
