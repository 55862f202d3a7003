// Package model defines the shapes shared across the collector and
// analysis services: the stored log record, the wire form used by the
// ingestion client, and the structured time range understood by the
// analysis workflow.
package model

import "time"

// Level is the closed set of severities a LogRecord can carry.
type Level string

const (
	LevelTrace Level = "TRACE"
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelFatal Level = "FATAL"
)

// ValidLevel reports whether l is one of the closed set of levels.
func ValidLevel(l Level) bool {
	switch l {
	case LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
		return true
	}
	return false
}

// Category is the log-source kind: where the record originated.
type Category string

const (
	CategoryBackend      Category = "BACKEND"
	CategoryFrontend     Category = "FRONTEND"
	CategoryMobile       Category = "MOBILE"
	CategoryIOT          Category = "IOT"
	CategoryWorker       Category = "WORKER"
	DefaultCategory               = CategoryBackend
	DefaultEnvironment            = "development"
	DefaultServiceVersion         = "v0.0.0-dev"
	DefaultService                = "unknown"
)

// LogRecord is the stored entity: a single wide row with a JSON metadata
// bag rather than a type hierarchy. Created on ingest, never updated,
// only ever soft-deleted.
type LogRecord struct {
	ID             int64
	CreatedAt      time.Time
	Level          Level
	LogType        Category
	Service        string
	Environment    string
	ServiceVersion string
	TraceID        *string
	UserID         *string
	SessionID      *string
	ErrorType      *string
	Message        string
	StackTrace     *string
	Path           *string
	Method         *string
	ActionType     *string
	FunctionName   *string
	FilePath       *string
	DurationMS     *float64
	Deleted        bool
	Metadata       map[string]any
}

// IngestRecord is the wire shape of one element in a collector ingest
// batch: the LogRecord minus server-assigned fields, plus the
// Unix-seconds timestamp the client sends instead of a time.Time.
type IngestRecord struct {
	Level          string         `json:"level" validate:"omitempty,oneof=TRACE DEBUG INFO WARN ERROR FATAL"`
	Message        string         `json:"message"`
	CreatedAt      *float64       `json:"created_at,omitempty" validate:"omitempty,gt=0"`
	LogType        string         `json:"log_type,omitempty"`
	Service        string         `json:"service,omitempty"`
	Environment    string         `json:"environment,omitempty"`
	ServiceVersion string         `json:"service_version,omitempty"`
	TraceID        string         `json:"trace_id,omitempty"`
	UserID         string         `json:"user_id,omitempty"`
	SessionID      string         `json:"session_id,omitempty"`
	ErrorType      string         `json:"error_type,omitempty"`
	StackTrace     string         `json:"stack_trace,omitempty"`
	Path           string         `json:"path,omitempty"`
	Method         string         `json:"method,omitempty"`
	ActionType     string         `json:"action_type,omitempty"`
	FunctionName   string         `json:"function_name,omitempty"`
	FilePath       string         `json:"file_path,omitempty"`
	DurationMS     *float64       `json:"duration_ms,omitempty" validate:"omitempty,gte=0"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// IngestBatch is the top-level body of a POST /logs request.
type IngestBatch struct {
	Logs []IngestRecord `json:"logs"`
}

// nullIfEmpty returns nil for an empty string, a pointer to the value
// otherwise; used when coercing optional wire fields into column pointers.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Coerce applies the collector's ingest defaults (§4.2): created_at
// defaults to now, level to INFO, log_type to BACKEND, service to
// "unknown", environment to "development", service_version to
// "v0.0.0-dev"; deleted is always false.
func (r IngestRecord) Coerce(now time.Time) LogRecord {
	createdAt := now
	if r.CreatedAt != nil {
		createdAt = time.Unix(0, int64(*r.CreatedAt*float64(time.Second))).UTC()
	}

	level := Level(r.Level)
	if level == "" {
		level = LevelInfo
	}

	logType := Category(r.LogType)
	if logType == "" {
		logType = DefaultCategory
	}

	service := r.Service
	if service == "" {
		service = DefaultService
	}

	environment := r.Environment
	if environment == "" {
		environment = DefaultEnvironment
	}

	version := r.ServiceVersion
	if version == "" {
		version = DefaultServiceVersion
	}

	return LogRecord{
		CreatedAt:      createdAt,
		Level:          level,
		LogType:        logType,
		Service:        service,
		Environment:    environment,
		ServiceVersion: version,
		TraceID:        nullIfEmpty(r.TraceID),
		UserID:         nullIfEmpty(r.UserID),
		SessionID:      nullIfEmpty(r.SessionID),
		ErrorType:      nullIfEmpty(r.ErrorType),
		Message:        r.Message,
		StackTrace:     nullIfEmpty(r.StackTrace),
		Path:           nullIfEmpty(r.Path),
		Method:         nullIfEmpty(r.Method),
		ActionType:     nullIfEmpty(r.ActionType),
		FunctionName:   nullIfEmpty(r.FunctionName),
		FilePath:       nullIfEmpty(r.FilePath),
		DurationMS:     r.DurationMS,
		Deleted:        false,
		Metadata:       r.Metadata,
	}
}

// Columns lists the logs table columns in the order CopyFrom expects them.
func Columns() []string {
	return []string{
		"created_at", "level", "log_type", "service", "environment",
		"service_version", "trace_id", "user_id", "session_id",
		"error_type", "message", "stack_trace", "path", "method",
		"action_type", "function_name", "file_path", "duration_ms",
		"deleted", "metadata",
	}
}

// Row renders r as a CopyFrom source row in Columns order.
func (r LogRecord) Row() []any {
	return []any{
		r.CreatedAt, string(r.Level), string(r.LogType), r.Service, r.Environment,
		r.ServiceVersion, r.TraceID, r.UserID, r.SessionID,
		r.ErrorType, r.Message, r.StackTrace, r.Path, r.Method,
		r.ActionType, r.FunctionName, r.FilePath, r.DurationMS,
		r.Deleted, r.Metadata,
	}
}
