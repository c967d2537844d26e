package driver

import (
	"fmt"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/types"
	"github.com/datazip-inc/oratest/utils"
	"github.com/go-playground/validator/v10"
	go_ora "github.com/sijms/go-ora/v2"
	"github.com/spf13/viper"
)

// Config describes the database under test. ConnectString, when set, is an
// easy connect string or connect descriptor and replaces the host based fields.
type Config struct {
	Host          string            `json:"host" validate:"required_without=ConnectString,excludes=://"`
	Port          int               `json:"port" validate:"omitempty,min=1,max=65535"`
	ServiceName   string            `json:"service_name" validate:"required_without_all=SID ConnectString"`
	SID           string            `json:"sid"`
	Username      string            `json:"username" validate:"required"`
	Password      string            `json:"password"`
	ConnectString string            `json:"connect_string"`
	JDBCURLParams map[string]string `json:"jdbc_url_params"`

	// DBA credentials are needed for grants and transaction guard services
	DBAUsername string `json:"dba_username"`
	DBAPassword string `json:"dba_password"`

	// ClientVersion simulates a thick client library for prerequisite checks;
	// go-ora is a pure Go driver and has none
	ClientVersion string `json:"client_version"`

	// TGService has COMMIT_OUTCOME enabled
	TGService string `json:"tg_service"`

	MaxThreads int              `json:"max_threads" validate:"omitempty,min=1"`
	RetryCount int              `json:"retry_count" validate:"omitempty,min=0"`
	SSHConfig  *utils.SSHConfig `json:"ssh_config"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ApplyEnv overrides fields from ORATEST_* environment variables
func (c *Config) ApplyEnv() {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()

	str := func(key string, dest *string) {
		if val := v.GetString(key); val != "" {
			*dest = val
		}
	}
	str("host", &c.Host)
	str("service_name", &c.ServiceName)
	str("username", &c.Username)
	str("password", &c.Password)
	str("connect_string", &c.ConnectString)
	str("dba_username", &c.DBAUsername)
	str("dba_password", &c.DBAPassword)
	str("client_version", &c.ClientVersion)
	str("tg_service", &c.TGService)
	if port := v.GetInt("port"); port > 0 {
		c.Port = port
	}
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid oracle config: %s", err)
	}

	if c.Port == 0 {
		c.Port = constants.DefaultOraclePort
	}
	if c.MaxThreads <= 0 {
		c.MaxThreads = constants.DefaultThreadCount
	}
	if c.TGService == "" {
		c.TGService = constants.TGServiceName
	}
	if c.ClientVersion != "" {
		if _, err := types.ParseVersion(c.ClientVersion); err != nil {
			return fmt.Errorf("invalid client_version: %s", err)
		}
	}
	if (c.DBAUsername == "") != (c.DBAPassword == "") {
		return fmt.Errorf("dba_username and dba_password must be set together")
	}
	if c.SSHConfig != nil && c.SSHConfig.Host != "" {
		if err := c.SSHConfig.Validate(); err != nil {
			return fmt.Errorf("invalid ssh config: %s", err)
		}
	}
	return nil
}

// URL returns the go-ora connection url for the test user
func (c *Config) URL() string {
	return c.buildURL(c.Username, c.Password)
}

// DBAURL returns the url for the privileged user, or "" when none is configured
func (c *Config) DBAURL() string {
	if c.DBAUsername == "" {
		return ""
	}
	return c.buildURL(c.DBAUsername, c.DBAPassword)
}

func (c *Config) buildURL(user, password string) string {
	if c.ConnectString != "" {
		return go_ora.BuildJDBC(user, password, c.ConnectString, c.JDBCURLParams)
	}

	options := make(map[string]string, len(c.JDBCURLParams)+1)
	for k, val := range c.JDBCURLParams {
		options[k] = val
	}
	service := c.ServiceName
	if service == "" && c.SID != "" {
		options["SID"] = c.SID
	}
	return go_ora.BuildUrl(c.Host, c.Port, service, user, password, options)
}
