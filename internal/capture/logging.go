package capture

import "github.com/corrlab/corrbuf/internal/logger"

// GetLogger returns the capture module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("capture")
}
