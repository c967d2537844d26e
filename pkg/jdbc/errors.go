package jdbc

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/datazip-inc/oratest/constants"
	"github.com/sijms/go-ora/v2/network"
)

var oraErrorRegex = regexp.MustCompile(constants.OraErrorRegex)

// OraCode returns the leading error code of err ("ORA-00942"), or "" when none is found.
// A go-ora server error carries the number directly; anything else is matched on its text.
func OraCode(err error) string {
	if err == nil {
		return ""
	}
	var oraErr *network.OracleError
	if errors.As(err, &oraErr) && oraErr.ErrCode > 0 {
		return fmt.Sprintf("ORA-%05d", oraErr.ErrCode)
	}
	match := oraErrorRegex.FindStringSubmatch(err.Error())
	if match == nil {
		return ""
	}
	return fmt.Sprintf("%s-%s", match[1], match[2])
}

// IsOraError reports whether err carries the given code, e.g. "ORA-00942"
func IsOraError(err error, code string) bool {
	if err == nil {
		return false
	}
	if OraCode(err) == code {
		return true
	}
	return strings.Contains(err.Error(), code+":")
}
