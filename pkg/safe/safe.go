package safe

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Run executes f and turns a panic into an error log.
func Run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("goroutine panic recovered",
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	f()
}
