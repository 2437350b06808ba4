package logging

import (
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat/go-file-rotatelogs"
	"github.com/pkg/errors"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

// NewFileRotateHooker returns a hook writing every entry to
// <path>/<filename>-<date>.log, rotated daily, with <filename>.log linking to
// the current file. age is the retention in days.
func NewFileRotateHooker(path, filename string, age uint32, formatter logrus.Formatter) (logrus.Hook, error) {
	if len(path) == 0 {
		return nil, errors.New("empty log directory")
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve log directory")
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, errors.Wrapf(err, "create log directory %s", path)
	}

	options := []rotatelogs.Option{
		rotatelogs.WithLinkName(filepath.Join(path, filename+".log")),
		rotatelogs.WithRotationTime(24 * time.Hour),
	}
	if age > 0 {
		options = append(options, rotatelogs.WithMaxAge(time.Duration(age)*24*time.Hour))
	}
	writer, err := rotatelogs.New(filepath.Join(path, filename+"-%Y%m%d.log"), options...)
	if err != nil {
		return nil, errors.Wrap(err, "create rotate logs")
	}

	return lfshook.NewHook(lfshook.WriterMap{
		logrus.TraceLevel: writer,
		logrus.DebugLevel: writer,
		logrus.InfoLevel:  writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
		logrus.FatalLevel: writer,
		logrus.PanicLevel: writer,
	}, formatter), nil
}
