package protocol

import "go.uber.org/zap"

// Logging is off by default. Applications that want the MAC-mismatch
// diagnostics opt in with SetLogger.
var logger = zap.NewNop()

// SetLogger installs the logger used for authentication diagnostics.
// Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}
