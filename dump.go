package pantrycook

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
)

var debug atomic.Bool

// SetDebug turns Dump on or off. It is off until DEBUG=true is loaded.
func SetDebug(on bool) { debug.Store(on) }

// Dump prints v to stderr prefixed with the caller's position.
func Dump(v ...any) {
	if !debug.Load() {
		return
	}
	_, file, line, _ := runtime.Caller(1)
	args := append([]any{fmt.Sprintf("%s:%d:", file, line)}, v...)
	spew.Fdump(os.Stderr, args...)
}
