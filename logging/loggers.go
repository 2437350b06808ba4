package logging

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// level names accepted by Init and the config file
const (
	PanicLevel = "panic"
	FatalLevel = "fatal"
	ErrorLevel = "error"
	WarnLevel  = "warn"
	InfoLevel  = "info"
	DebugLevel = "debug"
	TraceLevel = "trace"
)

// print levels
const (
	PANIC uint32 = iota
	FATAL
	ERROR
	WARN
	INFO
	DEBUG
	TRACE
)

const (
	// MsgFormatSingle annotates an entry with its call site.
	MsgFormatSingle uint32 = iota
	// MsgFormatMulti annotates an entry with a short call chain.
	MsgFormatMulti
)

// LogFormat carries the structured fields of one entry.
type LogFormat = map[string]interface{}

var levelNames = map[string]logrus.Level{
	PanicLevel: logrus.PanicLevel,
	FatalLevel: logrus.FatalLevel,
	ErrorLevel: logrus.ErrorLevel,
	WarnLevel:  logrus.WarnLevel,
	InfoLevel:  logrus.InfoLevel,
	DebugLevel: logrus.DebugLevel,
	TraceLevel: logrus.TraceLevel,
}

var printLevels = [...]logrus.Level{
	PANIC: logrus.PanicLevel,
	FATAL: logrus.FatalLevel,
	ERROR: logrus.ErrorLevel,
	WARN:  logrus.WarnLevel,
	INFO:  logrus.InfoLevel,
	DEBUG: logrus.DebugLevel,
	TRACE: logrus.TraceLevel,
}

type Logger struct {
	*logrus.Logger
	// CallRelation selects how much of the call stack is recorded.
	CallRelation uint32
}

func NewLogger() *Logger {
	return &Logger{
		Logger: logrus.New(),
	}
}

func (logger *Logger) SetCallRelation(relation uint32) {
	atomic.StoreUint32(&logger.CallRelation, relation)
}

func (logger *Logger) callRelation() uint32 {
	return atomic.LoadUint32(&logger.CallRelation)
}

var (
	mu   sync.RWMutex
	clog *Logger // console and file
	vlog *Logger // file only
)

// ParseLevel converts a level name, falling back to info for unknown names.
func ParseLevel(level string) logrus.Level {
	if l, ok := levelNames[level]; ok {
		return l
	}
	return logrus.InfoLevel
}

// IsLevel reports whether level names a known log level.
func IsLevel(level string) bool {
	_, ok := levelNames[level]
	return ok
}

// Init sets up the console and file loggers. Files are written to path and
// rotated daily; age is the retention in days, zero keeps them forever.
func Init(path, filename string, level string, age uint32, disableCPrint bool) error {
	fileHook, err := NewFileRotateHooker(path, filename, age, nil)
	if err != nil {
		return err
	}

	v := newLogger(ioutil.Discard, level)
	v.Hooks.Add(fileHook)

	c := v
	if !disableCPrint {
		c = newLogger(os.Stderr, level)
		c.Hooks.Add(fileHook)
	}

	mu.Lock()
	clog, vlog = c, v
	mu.Unlock()

	VPrint(INFO, "logger configured", LogFormat{
		"path":  path,
		"level": level,
	})
	return nil
}

// InitConsole routes both loggers to w without any file output.
func InitConsole(w io.Writer, level string) {
	l := newLogger(w, level)
	mu.Lock()
	clog, vlog = l, l
	mu.Unlock()
}

func newLogger(w io.Writer, level string) *Logger {
	l := NewLogger()
	LoadFunctionHooker(l)
	l.Out = w
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	l.Level = ParseLevel(level)
	return l
}

func loggers() (*Logger, *Logger) {
	mu.RLock()
	c, v := clog, vlog
	mu.RUnlock()
	if c != nil {
		return c, v
	}
	InitConsole(os.Stderr, InfoLevel)
	return loggers()
}

// GetGID returns the id of the calling goroutine.
func GetGID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

// CPrint writes to stderr and the log file.
func CPrint(level uint32, msg string, formats ...LogFormat) {
	c, _ := loggers()
	output(c, level, msg, formats)
}

// VPrint writes to the log file only.
func VPrint(level uint32, msg string, formats ...LogFormat) {
	_, v := loggers()
	output(v, level, msg, formats)
}

func output(l *Logger, level uint32, msg string, formats []LogFormat) {
	lv := logrus.ErrorLevel
	if int(level) < len(printLevels) {
		lv = printLevels[level]
	}
	if lv <= logrus.ErrorLevel {
		l.SetCallRelation(MsgFormatMulti)
	} else {
		l.SetCallRelation(MsgFormatSingle)
	}

	entry := l.WithFields(mergeLogFormats(formats...))
	switch lv {
	case logrus.PanicLevel:
		entry.Panic(msg)
	case logrus.FatalLevel:
		entry.Fatal(msg)
	case logrus.ErrorLevel:
		entry.Error(msg)
	case logrus.WarnLevel:
		entry.Warn(msg)
	case logrus.InfoLevel:
		entry.Info(msg)
	case logrus.DebugLevel:
		entry.Debug(msg)
	default:
		entry.Trace(msg)
	}
}

// mergeLogFormats merges LogFormats.
// Same key would be covered by later-presented values.
func mergeLogFormats(formats ...LogFormat) LogFormat {
	format := LogFormat{}
	for _, data := range formats {
		for k, v := range data {
			format[k] = v
		}
	}
	format["tid"] = GetGID()
	return format
}
