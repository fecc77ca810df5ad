package observability

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// LogPanic logs a recovered panic value with its stack trace.
//
// Usage in defer statements:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        observability.LogPanic(logger, "provision row", r)
//	    }
//	}()
func LogPanic(logger logrus.FieldLogger, where string, r interface{}) {
	if r == nil {
		return
	}
	logger.WithFields(logrus.Fields{
		"panic":   r,
		"stack":   string(debug.Stack()),
		"context": where,
	}).Error("PANIC recovered")
}

// MustRecover converts a recovered panic value into an error.
// If r is nil it returns nil.
//
// The stack trace is NOT included in the error; use LogPanic for that.
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
