package definition

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// DefaultLogger is the stock types.Logger implementation, backed by
// logrus the way the teacher's definition.DefaultLogger wraps stdlib's
// log.Logger. One instance is created per Coordinator/Worker process.
type DefaultLogger struct {
	entry *logrus.Entry
	base  *logrus.Logger
}

// NewDefaultLogger builds a logger writing to out, tagged with the
// given fields (e.g. {"id": 3, "component": "worker"}).
func NewDefaultLogger(out io.Writer, fields logrus.Fields) *DefaultLogger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &DefaultLogger{base: base, entry: base.WithFields(fields)}
}

// NewStdoutLogger is the "shell" mode variant: logs go to os.Stdout
// rather than a per-worker log file, per SetupMessage.Shell.
func NewStdoutLogger(fields logrus.Fields) *DefaultLogger {
	return NewDefaultLogger(os.Stdout, fields)
}

func (d *DefaultLogger) Info(args ...interface{})                 { d.entry.Info(args...) }
func (d *DefaultLogger) Infof(format string, args ...interface{})  { d.entry.Infof(format, args...) }
func (d *DefaultLogger) Warn(args ...interface{})                  { d.entry.Warn(args...) }
func (d *DefaultLogger) Warnf(format string, args ...interface{})  { d.entry.Warnf(format, args...) }
func (d *DefaultLogger) Error(args ...interface{})                 { d.entry.Error(args...) }
func (d *DefaultLogger) Errorf(format string, args ...interface{}) { d.entry.Errorf(format, args...) }
func (d *DefaultLogger) Debug(args ...interface{})                 { d.entry.Debug(args...) }
func (d *DefaultLogger) Debugf(format string, args ...interface{}) { d.entry.Debugf(format, args...) }
func (d *DefaultLogger) Fatal(args ...interface{})                 { d.entry.Fatal(args...) }
func (d *DefaultLogger) Fatalf(format string, args ...interface{}) { d.entry.Fatalf(format, args...) }

// SetOutput redirects the underlying logrus output, used once a
// worker learns from its SetupMessage whether it should log to its own
// file or to the shared terminal (Shell mode).
func (d *DefaultLogger) SetOutput(out io.Writer) {
	d.base.SetOutput(out)
}

func (d *DefaultLogger) ToggleDebug(on bool) {
	if on {
		d.base.SetLevel(logrus.DebugLevel)
	} else {
		d.base.SetLevel(logrus.InfoLevel)
	}
}

var _ types.Logger = (*DefaultLogger)(nil)
