package observability

import "github.com/corrlab/corrbuf/internal/logger"

// Package-level cached logger instance for efficiency.
var log = logger.Global().Module("metrics")
