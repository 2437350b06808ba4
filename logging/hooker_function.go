package logging

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

const maxCallChain = 3

// functionHooker records where an entry was logged from. Frames inside
// logrus and this package are skipped.
type functionHooker struct {
	innerLogger *Logger
}

func callerFrames() *runtime.Frames {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	return runtime.CallersFrames(pcs[:n])
}

func skipFrame(fn string) bool {
	return strings.Contains(fn, "github.com/sirupsen/logrus") ||
		strings.Contains(fn, "massdigest/logging.")
}

func shortFuncName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		return fn[i+1:]
	}
	return fn
}

func (h *functionHooker) Fire(entry *logrus.Entry) error {
	frames := callerFrames()
	depth := 0
	for {
		frame, more := frames.Next()
		if !skipFrame(frame.Function) && frame.Function != "" {
			if h.innerLogger.callRelation() == MsgFormatSingle {
				entry.Data["func"] = shortFuncName(frame.Function)
				entry.Data["file"] = filepath.Base(frame.File)
				entry.Data["line"] = frame.Line
				return nil
			}
			entry.Data[fmt.Sprintf("f%d", depth)] = fmt.Sprintf("{%s,%s,%d}",
				filepath.Base(frame.File), shortFuncName(frame.Function), frame.Line)
			depth++
			if depth == maxCallChain {
				return nil
			}
		}
		if !more {
			return nil
		}
	}
}

func (h *functionHooker) Levels() []logrus.Level {
	return logrus.AllLevels
}

// LoadFunctionHooker loads a function hooker to the logger
func LoadFunctionHooker(logger *Logger) {
	logger.Hooks.Add(&functionHooker{innerLogger: logger})
}
