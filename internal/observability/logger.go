package observability

import "github.com/tphakala/trapcam/internal/logger"

// GetLogger returns the observability module logger. It is resolved per call
// so it follows logger.SetGlobal.
func GetLogger() logger.Logger {
	return logger.Global().Module("observability")
}
