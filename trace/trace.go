// Package trace provides a debug-output abstraction for the controller
// side of the flash-disk protocol.
//
// The original firmware gated all of its diagnostic printing behind a
// compile-time DEBUG macro so that a disabled build paid nothing for it.
// Go has no conditional compilation for this; instead a Logger defaults
// to a level at which every call site is a single IsLevelEnabled check,
// so the protocol's hot path never blocks on I/O when tracing is off.
package trace

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger wraps a *logrus.Logger configured for the controller's debug
// surface: silent by default, switched to debug output on a UART (or
// any io.Writer) when enabled.
type Logger struct {
	l *logrus.Logger
}

// New returns a Logger writing to w. Tracing starts disabled.
func New(w io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.PanicLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return &Logger{l: l}
}

// Enable switches the logger to debug level.
func (t *Logger) Enable() { t.l.SetLevel(logrus.DebugLevel) }

// Disable silences the logger again.
func (t *Logger) Disable() { t.l.SetLevel(logrus.PanicLevel) }

// Enabled reports whether debug output is currently switched on.
func (t *Logger) Enabled() bool { return t.l.IsLevelEnabled(logrus.DebugLevel) }

// Msg logs a bare message, mirroring the firmware's print_msg.
func (t *Logger) Msg(msg string) {
	if t.l.IsLevelEnabled(logrus.DebugLevel) {
		t.l.Debug(msg)
	}
}

// MsgString logs msg followed by value, mirroring print_msg_string.
func (t *Logger) MsgString(msg, value string) {
	if t.l.IsLevelEnabled(logrus.DebugLevel) {
		t.l.WithField("value", value).Debug(msg)
	}
}

// MsgHex logs msg followed by a hex-formatted value, mirroring print_msg_hex.
func (t *Logger) MsgHex(msg string, value uint16) {
	if t.l.IsLevelEnabled(logrus.DebugLevel) {
		t.l.WithField("value", value).Debugf("%s%#x", msg, value)
	}
}

// Status logs the controller's current state snapshot, mirroring print_status.
func (t *Logger) Status(state, command byte, idx, max, fileSize uint16) {
	if t.l.IsLevelEnabled(logrus.DebugLevel) {
		t.l.WithFields(logrus.Fields{
			"state": state, "cmd": command, "idx": idx, "max": max, "fs": fileSize,
		}).Debug("status")
	}
}
