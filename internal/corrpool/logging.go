package corrpool

import "github.com/corrlab/corrbuf/internal/logger"

// GetLogger returns the corrpool logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("pool")
}
