package log

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voterlookup/epic-extractor/pkg/requestid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StructuredLogger emits operation scoped log lines named after the component.
// Steps and successes are written at debug level, errors at error level.
type StructuredLogger struct {
	name string
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name}
}

func (l *StructuredLogger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{
		logger:    zap.S().Named(l.name),
		requestID: requestid.FromContext(ctx),
	}
}

type ContextLogger struct {
	logger    *zap.SugaredLogger
	requestID string
}

func (c *ContextLogger) Operation(name string) *OperationBuilder {
	fields := []any{"operation", name}
	if c.requestID != "" {
		fields = append(fields, "request_id", c.requestID)
	}
	return &OperationBuilder{logger: c.logger, operation: name, fields: fields}
}

type OperationBuilder struct {
	logger    *zap.SugaredLogger
	operation string
	fields    []any
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, key, value)
	return b
}

func (b *OperationBuilder) WithInt(key string, value int) *OperationBuilder {
	b.fields = append(b.fields, key, value)
	return b
}

func (b *OperationBuilder) WithBool(key string, value bool) *OperationBuilder {
	b.fields = append(b.fields, key, value)
	return b
}

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	b.fields = append(b.fields, key, value.String())
	return b
}

func (b *OperationBuilder) WithParam(key string, value any) *OperationBuilder {
	b.fields = append(b.fields, key, fmt.Sprintf("%v", value))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	return &OperationTracer{
		logger:    b.logger.With(b.fields...),
		operation: b.operation,
		start:     time.Now(),
	}
}

// OperationTracer is returned by Build and lives for the duration of one operation.
type OperationTracer struct {
	logger    *zap.SugaredLogger
	operation string
	start     time.Time
}

func (t *OperationTracer) Step(name string) *Event {
	return &Event{
		logger: t.logger,
		level:  zap.DebugLevel,
		msg:    fmt.Sprintf("%s: %s", t.operation, name),
		fields: []any{"step", name},
	}
}

func (t *OperationTracer) Success() *Event {
	return &Event{
		logger: t.logger,
		level:  zap.DebugLevel,
		msg:    fmt.Sprintf("%s: succeeded", t.operation),
		fields: []any{"duration", time.Since(t.start)},
	}
}

func (t *OperationTracer) Error(err error) *Event {
	return &Event{
		logger: t.logger,
		level:  zap.ErrorLevel,
		msg:    fmt.Sprintf("%s: failed", t.operation),
		fields: []any{"error", err, "duration", time.Since(t.start)},
	}
}

// Event is a single log line. Nothing is written until Log is called.
type Event struct {
	logger *zap.SugaredLogger
	level  zapcore.Level
	msg    string
	fields []any
}

func (e *Event) WithString(key, value string) *Event {
	e.fields = append(e.fields, key, value)
	return e
}

func (e *Event) WithInt(key string, value int) *Event {
	e.fields = append(e.fields, key, value)
	return e
}

func (e *Event) WithBool(key string, value bool) *Event {
	e.fields = append(e.fields, key, value)
	return e
}

func (e *Event) WithUUID(key string, value uuid.UUID) *Event {
	e.fields = append(e.fields, key, value.String())
	return e
}

func (e *Event) WithParam(key string, value any) *Event {
	e.fields = append(e.fields, key, fmt.Sprintf("%v", value))
	return e
}

// Info raises the event to info level.
func (e *Event) Info() *Event {
	e.level = zap.InfoLevel
	return e
}

func (e *Event) Log() {
	e.logger.Logw(e.level, e.msg, e.fields...)
}
