package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/utils"
	"github.com/datazip-inc/oratest/utils/logger"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:     "check",
	Short:   "report which feature suites the database can run",
	PreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		defer connector.Close()

		ctx, cancel := commandContext(cmd.Context())
		defer cancel()

		result, err := connector.Check(ctx)
		if err != nil {
			return err
		}
		out, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal prerequisites: %s", err)
		}
		logger.Info(string(out))
		return nil
	},
}

func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	d := utils.Ternary(timeout == -1, constants.DefaultCommandTimeout, time.Duration(timeout)*time.Second).(time.Duration)
	return context.WithTimeout(parent, d)
}
