package soda

import (
	"context"
	"fmt"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/pkg/jdbc"
	"github.com/datazip-inc/oratest/utils/logger"
	"github.com/hashicorp/go-multierror"
)

// Cleanup drops every collection visible to the current user. It keeps going
// past individual failures, logging each one, and returns them together.
// Running it again on a clean schema is a no-op.
func Cleanup(ctx context.Context, q jdbc.Querier) error {
	db := NewDatabase(q)
	names, err := db.CollectionNames(ctx)
	if err != nil {
		logger.Warnf("soda cleanup could not list collections: %s", err)
		return err
	}

	var result *multierror.Error
	dropped := 0
	for _, name := range names {
		ok, err := db.DropCollection(ctx, name)
		if err != nil {
			logger.Warnf("soda cleanup failed to drop collection[%s]: %s", name, err)
			result = multierror.Append(result, err)
			continue
		}
		if ok {
			dropped++
		}
	}
	logger.Infof("soda cleanup dropped %d of %d collections", dropped, len(names))
	return result.ErrorOrNil()
}

// GrantRole grants SODA_APP to user; dba must hold the role with admin option
func GrantRole(ctx context.Context, dba jdbc.Querier, user string) error {
	query, err := jdbc.GrantRoleQuery(constants.SodaRole, user)
	if err != nil {
		return err
	}
	if _, err := dba.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to grant %s to %s: %s", constants.SodaRole, user, err)
	}
	return nil
}

// IsRoleGranted reports whether the session user holds SODA_APP
func IsRoleGranted(ctx context.Context, q jdbc.Querier) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, jdbc.SodaRoleGrantedQuery()).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check %s grant: %s", constants.SodaRole, err)
	}
	return count > 0, nil
}
