package oratest

import (
	"github.com/datazip-inc/oratest/drivers/abstract"
	protocol "github.com/datazip-inc/oratest/protocol"
	"github.com/datazip-inc/oratest/utils/logger"
)

// RegisterDriver builds the CLI around driver and runs it
func RegisterDriver(driver abstract.DriverInterface) {
	defer func() {
		if r := recover(); r != nil {
			logger.Fatal(r)
		}
	}()

	if err := protocol.CreateRootCommand(driver).Execute(); err != nil {
		logger.Fatal(err)
	}
}
