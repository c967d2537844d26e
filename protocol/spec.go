package protocol

import (
	"fmt"

	"github.com/datazip-inc/oratest/utils/logger"
	"github.com/datazip-inc/oratest/utils/spec"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "print the config template and its ui schema",
	RunE: func(_ *cobra.Command, _ []string) error {
		uiSchema, err := spec.LoadUISchema(connector.Type())
		if err != nil {
			return fmt.Errorf("failed to get ui schema: %s", err)
		}

		specSchema := map[string]any{
			"config":   connector.Spec(),
			"uischema": json.RawMessage(uiSchema),
		}
		out, err := json.MarshalIndent(specSchema, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal spec: %s", err)
		}
		logger.Info(string(out))
		return nil
	},
}
