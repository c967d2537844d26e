package main

import (
	"github.com/datazip-inc/oratest"
	driver "github.com/datazip-inc/oratest/drivers/oracle/internal"
)

func main() {
	driver := &driver.Oracle{}
	defer driver.Close()
	oratest.RegisterDriver(driver)
}
