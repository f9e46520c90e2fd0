package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// GoRecoverable runs f and restarts it in a new goroutine after a panic.
// A negative maxPanics allows unlimited restarts; onExhausted runs instead of
// a restart once the budget is spent.
func GoRecoverable(maxPanics int, id string, f func(), onExhausted func()) {
	defer func() {
		if err := recover(); err != nil {
			entry := log.WithField("job", id)
			entry.Errorf("job panics with message: %s, %s", err, identifyPanic())
			if maxPanics == 0 {
				entry.Error("panics limit exceeded")
				if onExhausted != nil {
					onExhausted()
				}
				return
			}
			if maxPanics > 0 {
				maxPanics--
			}
			entry.Debugf("recovering job with max panics left: %d", maxPanics)
			go GoRecoverable(maxPanics, id, f, onExhausted)
		}
	}()
	f()
}

func identifyPanic() string {
	var name, file string
	var line int
	var pc [16]uintptr

	n := runtime.Callers(3, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%v:%v", name, line)
	case file != "":
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("pc:%x", pc)
}
