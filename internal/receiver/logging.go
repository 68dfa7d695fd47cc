package receiver

import "github.com/corrlab/corrbuf/internal/logger"

// GetLogger returns the receiver module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("receiver")
}
