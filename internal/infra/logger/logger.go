package logger

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arklim/account-service/internal/infra/config"
)

// New builds a zap.Logger for the environment. Production gets the JSON
// encoder, everything else the colored console encoder.
func New(env string, settings config.LogSettings) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env != "production" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if settings.Level != "" {
		level, err := zap.ParseAtomicLevel(settings.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		cfg.Level = level
	}
	if len(settings.OutputPaths) > 0 {
		cfg.OutputPaths = settings.OutputPaths
	}
	if len(settings.ErrorOutputPaths) > 0 {
		cfg.ErrorOutputPaths = settings.ErrorOutputPaths
	}

	return cfg.Build()
}

// WithContext attaches request scoped fields to the logger.
func WithContext(ctx context.Context, lg *zap.Logger) *zap.Logger {
	if lg == nil {
		lg = zap.NewNop()
	}
	if id := RequestIDFromContext(ctx); id != "" {
		return lg.With(zap.String("request_id", id))
	}
	return lg
}

// RequestIDFromContext returns the correlation id stored by the HTTP layer.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(RequestIDKey{}).(string); ok {
		return val
	}
	return ""
}

// RequestIDKey is used to store a request identifier on the context.
type RequestIDKey struct{}

var emailRegex = regexp.MustCompile(`^([^@]{1,3})[^@]*(@.+)$`)

// MaskEmail keeps the first three characters and the domain.
// Example: john.doe@example.com -> joh***@example.com
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	if matches := emailRegex.FindStringSubmatch(email); len(matches) == 3 {
		return matches[1] + "***" + matches[2]
	}

	if parts := strings.SplitN(email, "@", 2); len(parts) == 2 {
		return "***@" + parts[1]
	}

	return "***"
}

// MaskIP keeps the first two IPv4 octets or the first four IPv6 groups.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	if strings.Contains(ip, ".") {
		if parts := strings.Split(ip, "."); len(parts) == 4 {
			return parts[0] + "." + parts[1] + ".*.*"
		}
	}

	if strings.Contains(ip, ":") {
		if parts := strings.Split(ip, ":"); len(parts) >= 4 {
			return strings.Join(parts[:4], ":") + ":*:*:*:*"
		}
	}

	return "***"
}
