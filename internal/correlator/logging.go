package correlator

import "github.com/corrlab/corrbuf/internal/logger"

// GetLogger returns the correlator module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("correlator")
}
