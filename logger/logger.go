/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

// Logger is the boundary every core package logs through. It is safe for
// concurrent use by multiple goroutines (logrus itself serializes writes).
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(msg string, err error, fields ...Fields)
	WithField(key string, value interface{}) Logger
	WithFields(f Fields) Logger
	SetLevel(l Level)
}

type logger struct {
	base *logrus.Entry
}

// New returns a Logger writing to w at the given level, formatted as text
// with a RFC3339 timestamp.
func New(w io.Writer, level Level) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level.logrus())
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return &logger{base: logrus.NewEntry(l)}
}

// NewStderr is the common case: a logger writing to standard error.
func NewStderr(level Level) Logger {
	return New(os.Stderr, level)
}

func (g *logger) clone(e *logrus.Entry) Logger {
	return &logger{base: e}
}

func (g *logger) WithField(key string, value interface{}) Logger {
	return g.clone(g.base.WithField(key, value))
}

func (g *logger) WithFields(f Fields) Logger {
	return g.clone(g.base.WithFields(logrus.Fields(f)))
}

func (g *logger) SetLevel(l Level) {
	g.base.Logger.SetLevel(l.logrus())
}

func withFields(e *logrus.Entry, f []Fields) *logrus.Entry {
	if len(f) == 0 {
		return e
	}
	merged := logrus.Fields{}
	for _, m := range f {
		for k, v := range m {
			merged[k] = v
		}
	}
	return e.WithFields(merged)
}

func (g *logger) Debug(msg string, fields ...Fields) {
	withFields(g.base, fields).Debug(msg)
}

func (g *logger) Info(msg string, fields ...Fields) {
	withFields(g.base, fields).Info(msg)
}

func (g *logger) Warn(msg string, fields ...Fields) {
	withFields(g.base, fields).Warn(msg)
}

func (g *logger) Error(msg string, err error, fields ...Fields) {
	e := withFields(g.base, fields)
	if err != nil {
		e = e.WithField("error", err.Error())
	}
	e.Error(msg)
}

// Nop returns a Logger that discards everything, for tests that don't care
// about log output.
func Nop() Logger {
	return New(io.Discard, ErrorLevel)
}
