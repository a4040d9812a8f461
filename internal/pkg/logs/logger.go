// Package logs provides structured JSON logger on top of gommon logger.
package logs

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/labstack/gommon/log"
)

// Logger represents structured logger that is compatible with echo.Logger.
type Logger struct {
	*log.Logger
	fields []any
}

// NewLogger creates a new instance of logger with JSON header.
func NewLogger(level log.Lvl) *Logger {
	logger := log.New("")
	logger.SetHeader(`{"time":"${time_rfc3339_nano}","level":"${level}"}`)
	logger.SetLevel(level)
	return &Logger{Logger: logger}
}

// NewDiscardLogger creates logger that writes nothing.
func NewDiscardLogger() *Logger {
	logger := NewLogger(log.OFF)
	logger.SetOutput(io.Discard)
	return logger
}

// With returns logger that appends specified fields to every line.
func (l *Logger) With(args ...any) *Logger {
	fields := make([]any, 0, len(args)+len(l.fields))
	fields = append(fields, args...)
	fields = append(fields, l.fields...)
	return &Logger{
		Logger: l.Logger,
		fields: fields,
	}
}

func (l *Logger) Debug(args ...any) {
	l.debugj(makeLogLine(args...))
}

func (l *Logger) Info(args ...any) {
	l.infoj(makeLogLine(args...))
}

func (l *Logger) Warn(args ...any) {
	l.warnj(makeLogLine(args...))
}

func (l *Logger) Error(args ...any) {
	l.errorj(makeLogLine(args...))
}

func (l *Logger) Debugj(line log.JSON) {
	l.debugj(line)
}

func (l *Logger) Infoj(line log.JSON) {
	l.infoj(line)
}

func (l *Logger) Warnj(line log.JSON) {
	l.warnj(line)
}

func (l *Logger) Errorj(line log.JSON) {
	l.errorj(line)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.debugj(makeLogLine(fmt.Sprintf(format, args...)))
}

func (l *Logger) Infof(format string, args ...any) {
	l.infoj(makeLogLine(fmt.Sprintf(format, args...)))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.warnj(makeLogLine(fmt.Sprintf(format, args...)))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.errorj(makeLogLine(fmt.Sprintf(format, args...)))
}

func (l *Logger) debugj(line log.JSON) {
	l.Logger.Debugj(l.prepare(line))
}

func (l *Logger) infoj(line log.JSON) {
	l.Logger.Infoj(l.prepare(line))
}

func (l *Logger) warnj(line log.JSON) {
	l.Logger.Warnj(l.prepare(line))
}

func (l *Logger) errorj(line log.JSON) {
	l.Logger.Errorj(l.prepare(line))
}

func (l *Logger) prepare(line log.JSON) log.JSON {
	// Skip prepare, level method and public wrapper.
	if _, file, no, ok := runtime.Caller(3); ok {
		line["file"] = fmt.Sprintf("%s:%d", file, no)
	}
	setLogLine(line, l.fields...)
	return line
}

// LogField represents named field of log line.
type LogField struct {
	Name  string
	Value any
}

// Any creates log field with specified name and value.
func Any(name string, value any) LogField {
	return LogField{Name: name, Value: value}
}

func makeLogLine(args ...any) log.JSON {
	line := log.JSON{}
	setLogLine(line, args...)
	return line
}

func setLogLine(line log.JSON, args ...any) {
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case string:
			line["message"] = v
		case LogField:
			if d, ok := v.Value.(time.Duration); ok {
				line[v.Name] = d.String()
			} else {
				line[v.Name] = v.Value
			}
		case error:
			line["error"] = v.Error()
		case fmt.Stringer:
			line["message"] = v.String()
		default:
			line["message"] = fmt.Sprint(v)
		}
	}
}
