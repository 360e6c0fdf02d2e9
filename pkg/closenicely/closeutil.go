package closenicely

import (
	"io"

	"go.uber.org/zap"
)

// OrDebug closes a read-only resource, where a close error cannot lose data, and logs any
// failure at debug level with the given fields.
func OrDebug(closer io.Closer, fields ...zap.Field) {
	FuncOrDebug(closer.Close, fields...)
}

func FuncOrDebug(closer func() error, fields ...zap.Field) {
	if err := closer(); err != nil {
		zap.L().Debug("Failed to close resource", append(fields, zap.Error(err))...)
	}
}
