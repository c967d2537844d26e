package abstract

import (
	"strings"

	"github.com/datazip-inc/oratest/constants"
)

// IsRetryable is false for errors that no amount of retrying will fix, such as bad credentials
func IsRetryable(err error) bool {
	for _, nonRetryableError := range constants.NonRetryableErrors {
		if strings.Contains(err.Error(), nonRetryableError) {
			return false
		}
	}
	return true
}
