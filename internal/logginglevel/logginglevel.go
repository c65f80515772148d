package logginglevel

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the process-wide logging level, shared between the logger
// configured in the root command and the places that flip it at runtime.
var Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
