package protocol

import (
	"github.com/datazip-inc/oratest/utils/logger"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:     "cleanup",
	Short:   "drop every SODA collection owned by the test user",
	PreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		defer connector.Close()

		ctx, cancel := commandContext(cmd.Context())
		defer cancel()

		if err := connector.CleanupSoda(ctx); err != nil {
			return err
		}
		logger.Info("SODA cleanup completed")
		return nil
	},
}

var prepareCmd = &cobra.Command{
	Use:     "prepare",
	Short:   "grant SODA_APP and start the Transaction Guard service (needs dba credentials)",
	PreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		defer connector.Close()

		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		return connector.Prepare(ctx)
	},
}

var teardownCmd = &cobra.Command{
	Use:     "teardown",
	Short:   "drop SODA collections and remove the Transaction Guard service",
	PreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		defer connector.Close()

		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		return connector.Teardown(ctx)
	},
}
