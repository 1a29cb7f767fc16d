package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	// LoggerKey is the context key for the request-scoped logger
	LoggerKey contextKey = "logger"
	// TenantIDKey is the context key for the tenant ID
	TenantIDKey contextKey = "tenant_id"
	// UserIDKey is the context key for the acting user ID
	UserIDKey contextKey = "user_id"
)

// WithContext attaches a logger to the context
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger attached to the context, or a no-op
// logger when none was attached
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithTenantID stores the tenant ID in the context and returns a logger
// that stamps it on every entry
func WithTenantID(ctx context.Context, logger *zap.Logger, tenantID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, TenantIDKey, tenantID)
	scoped := logger.With(zap.String("tenant_id", tenantID))
	return WithContext(ctx, scoped), scoped
}

// WithUserID stores the user ID in the context and returns a logger that
// stamps it on every entry
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	scoped := logger.With(zap.String("user_id", userID))
	return WithContext(ctx, scoped), scoped
}

// GetTenantID reads the tenant ID back out of the context
func GetTenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}
