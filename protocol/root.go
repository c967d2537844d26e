package protocol

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/drivers/abstract"
	"github.com/datazip-inc/oratest/utils"
	"github.com/datazip-inc/oratest/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath string
	noSave     bool
	timeout    int64 // timeout in seconds

	commands  = []*cobra.Command{}
	connector *abstract.AbstractDriver
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "orafixture",
	Short: "Oracle test fixture helpers",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		viper.SetDefault(constants.ConfigFolder, os.TempDir())
		switch {
		case noSave:
			viper.Set(constants.ConfigFolder, "")
		case configPath != "not-set":
			viper.Set(constants.ConfigFolder, filepath.Dir(configPath))
		}
		// logger uses CONFIG_FOLDER
		logger.Init()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		if ok := utils.IsValidSubcommand(commands, args[0]); !ok {
			return fmt.Errorf("'%s' is an invalid command. Use 'orafixture --help' to display usage guide", args[0])
		}
		return nil
	},
}

func CreateRootCommand(driver abstract.DriverInterface) *cobra.Command {
	RootCmd.AddCommand(commands...)
	connector = abstract.NewAbstractDriver(RootCmd.Context(), driver)
	return RootCmd
}

// loadConfig reads --config into the driver and connects
func loadConfig(cmd *cobra.Command, _ []string) error {
	if configPath == "not-set" {
		return fmt.Errorf("--config not passed")
	}
	if err := utils.UnmarshalFile(configPath, connector.GetConfigRef()); err != nil {
		return err
	}
	return connector.Setup(cmd.Context())
}

func init() {
	commands = append(commands, specCmd, checkCmd, cleanupCmd, prepareCmd, teardownCmd, outcomeCmd)
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "", "not-set", "(Required) Config for the database under test")
	RootCmd.PersistentFlags().BoolVarP(&noSave, "no-save", "", false, "(Optional) Flag to skip logging artifacts in file")
	RootCmd.PersistentFlags().Int64VarP(&timeout, "timeout", "", -1, "(Optional) Timeout to override the default command timeout (in seconds)")
	// Disable Cobra CLI's built-in usage and error handling
	RootCmd.SilenceUsage = true
	RootCmd.SilenceErrors = true
}
