// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

var avdLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelWarn,
}))

// ConfigureLogging replaces the package logger. Menu output goes to stdout,
// so structured logs stay on w (normally stderr) at the given level.
func ConfigureLogging(w io.Writer, level slog.Level) {
	avdLogger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLogLevel maps AVDHELPER_LOG_LEVEL values onto slog levels; unknown values mean warn.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func logEvent(env Env, message string, fields ...any) {
	logAt(env, slog.LevelInfo, message, fields...)
}

func logWarn(env Env, message string, fields ...any) {
	logAt(env, slog.LevelWarn, message, fields...)
}

func logAt(env Env, level slog.Level, message string, fields ...any) {
	baseFields := []any{"timestamp_ns", time.Now().UTC().UnixNano()}
	if env.CorrelationID != "" {
		baseFields = append(baseFields, "correlation_id", env.CorrelationID)
	}
	allFields := append(baseFields, fields...)
	ctx := spanContext(env)
	avdLogger.Log(ctx, level, message, allFields...)
	emitOtelRecord(ctx, level, message, allFields)
}

// emitOtelRecord mirrors a log line into the global OpenTelemetry logger
// provider, which is a no-op until one is installed.
func emitOtelRecord(ctx context.Context, level slog.Level, message string, fields []any) {
	var record otellog.Record
	record.SetTimestamp(time.Now())
	record.SetBody(otellog.StringValue(message))
	record.SetSeverity(otelSeverity(level))
	record.SetSeverityText(level.String())
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		record.AddAttributes(otellog.String(key, fmt.Sprint(fields[i+1])))
	}
	global.Logger("avdhelper").Emit(ctx, record)
}

func otelSeverity(level slog.Level) otellog.Severity {
	switch {
	case level >= slog.LevelError:
		return otellog.SeverityError
	case level >= slog.LevelWarn:
		return otellog.SeverityWarn
	case level >= slog.LevelInfo:
		return otellog.SeverityInfo
	default:
		return otellog.SeverityDebug
	}
}

type lineLogWriter struct {
	env    Env
	fields []any
	buffer []byte
	msg    string
}

func (writer *lineLogWriter) Write(payload []byte) (int, error) {
	writer.buffer = append(writer.buffer, payload...)
	for {
		newlineIndex := bytes.IndexByte(writer.buffer, '\n')
		if newlineIndex == -1 {
			break
		}
		line := writer.buffer[:newlineIndex]
		writer.buffer = writer.buffer[newlineIndex+1:]
		writer.emit(line)
	}
	return len(payload), nil
}

// Flush logs a trailing line that was never terminated by a newline.
func (writer *lineLogWriter) Flush() {
	if len(writer.buffer) == 0 {
		return
	}
	line := writer.buffer
	writer.buffer = nil
	writer.emit(line)
}

func (writer *lineLogWriter) emit(raw []byte) {
	line := strings.TrimSpace(string(raw))
	if line != "" {
		logEvent(writer.env, writer.msg, append(writer.fields, "line", line)...)
	}
}

func newLineLogWriterWithMessage(env Env, message string, fields ...any) *lineLogWriter {
	return &lineLogWriter{
		env:    env,
		fields: fields,
		msg:    message,
	}
}

func newCommandLogWriter(env Env, command string, args []string) *lineLogWriter {
	fields := []any{"command", command, "stream", "stderr"}
	if len(args) > 0 {
		fields = append(fields, "args", strings.Join(args, " "))
	}
	return newLineLogWriterWithMessage(env, "command stderr", fields...)
}
