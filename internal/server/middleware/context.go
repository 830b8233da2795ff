// Package middleware holds the HTTP middleware chain: request logging, recovery, tracing,
// metrics, session decoding, telemetry and audit.
package middleware

import (
	"context"

	"mobitech-crm/backend/internal/session/domain"
)

type contextKey struct{ name string }

var (
	descriptorKey = contextKey{"session_descriptor"}
	clientIPKey   = contextKey{"client_ip"}
	requestIDKey  = contextKey{"request_id"}
)

// WithDescriptor returns a context carrying the caller's session descriptor.
func WithDescriptor(ctx context.Context, d domain.Descriptor) context.Context {
	return context.WithValue(ctx, descriptorKey, d)
}

// DescriptorFrom returns the session descriptor stored by the Session middleware, or a logged-out
// descriptor when none is set.
func DescriptorFrom(ctx context.Context) domain.Descriptor {
	if d, ok := ctx.Value(descriptorKey).(domain.Descriptor); ok {
		return d
	}
	return domain.LoggedOut()
}

// WithClientIP returns a context carrying the client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFrom returns the client IP stored by RequestLogging, or "" when unset.
func ClientIPFrom(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}

// RequestIDFrom returns the request id stored by RequestLogging, or "" when unset.
func RequestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}
