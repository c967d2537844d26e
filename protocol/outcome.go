package protocol

import (
	"fmt"

	"github.com/datazip-inc/oratest/utils/logger"
	"github.com/spf13/cobra"
)

var ltxid string

var outcomeCmd = &cobra.Command{
	Use:   "ltxid-outcome",
	Short: "ask the server whether a logical transaction committed",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if ltxid == "" {
			return fmt.Errorf("--ltxid not passed")
		}
		return loadConfig(cmd, args)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		defer connector.Close()

		ctx, cancel := commandContext(cmd.Context())
		defer cancel()

		outcome, err := connector.LTXIDOutcome(ctx, ltxid)
		if err != nil {
			return err
		}
		logger.Infof("ltxid %s: %s", ltxid, outcome)
		return nil
	},
}

func init() {
	outcomeCmd.Flags().StringVarP(&ltxid, "ltxid", "", "", "(Required) Hex encoded logical transaction id")
}
