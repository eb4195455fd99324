// Package logging provides structured logging with trace/user correlation
// for every component of the memory service.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys carrying correlation data.
type ContextKey string

const (
	TraceIDKey ContextKey = "trace_id"
	UserIDKey  ContextKey = "user_id"
	ServiceKey ContextKey = "service"
)

// Logger wraps logrus.Logger with service identity and correlation fields.
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a Logger for service with the given level/format.
func New(service, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, service: service}
}

// NewFromEnv builds a logger from LOG_LEVEL/LOG_FORMAT, defaulting to info/json.
func NewFromEnv(service string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(service, level, format)
}

// WithContext returns an entry carrying trace/user ids pulled from ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("service", l.service)
	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		entry = entry.WithField("trace_id", traceID)
	}
	if userID := ctx.Value(UserIDKey); userID != nil {
		entry = entry.WithField("user_id", userID)
	}
	return entry
}

func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["service"] = l.service
	return l.Logger.WithFields(fields)
}

func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{"service": l.service, "error": err.Error()})
}

// NewTraceID generates a new correlation id.
func NewTraceID() string {
	return uuid.New().String()
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// Domain-specific structured helpers, one per hot path that benefits from a
// fixed field shape instead of ad-hoc WithFields calls at the call site.

// LogIngestion logs the outcome of one extraction-pipeline run.
func (l *Logger) LogIngestion(ctx context.Context, userID string, created, duplicates, updates int, duration time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"user_id":             userID,
		"memories_created":    created,
		"duplicates_avoided":  duplicates,
		"updates_made":        updates,
		"duration_ms":         duration.Milliseconds(),
	}).Info("ingestion pipeline completed")
}

// LogRetrieval logs one hybrid retrieval call.
func (l *Logger) LogRetrieval(ctx context.Context, userID string, resultCount int, degraded []string, duration time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"user_id":      userID,
		"result_count": resultCount,
		"degraded":     degraded,
		"duration_ms":  duration.Milliseconds(),
	}).Info("hybrid retrieval completed")
}

// LogPersistenceOutcome logs one persistence-orchestrator fan-out.
func (l *Logger) LogPersistenceOutcome(ctx context.Context, memoryID string, outcomes map[string]bool, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"memory_id": memoryID,
		"outcomes":  outcomes,
	})
	if err != nil {
		entry.WithError(err).Error("persistence orchestrator write failed")
		return
	}
	entry.Info("persistence orchestrator write completed")
}

// LogIntentFire logs a scheduled-intent fire callback result.
func (l *Logger) LogIntentFire(ctx context.Context, intentID, status string, nextCheck *time.Time) {
	fields := logrus.Fields{"intent_id": intentID, "status": status}
	if nextCheck != nil {
		fields["next_check"] = nextCheck.Format(time.RFC3339)
	}
	l.WithContext(ctx).WithFields(fields).Info("scheduled intent fired")
}

// LogMaintenanceRun logs one maintenance-engine job invocation.
func (l *Logger) LogMaintenanceRun(ctx context.Context, userID, job string, affected int, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"user_id":  userID,
		"job":      job,
		"affected": affected,
	})
	if err != nil {
		entry.WithError(err).Error("maintenance job failed")
		return
	}
	entry.Info("maintenance job completed")
}

var defaultLogger *Logger

// InitDefault initializes the process-wide default logger.
func InitDefault(service, level, format string) {
	defaultLogger = New(service, level, format)
}

// Default returns the process-wide logger, lazily building a fallback.
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("memoryserver", "info", "json")
	}
	return defaultLogger
}
