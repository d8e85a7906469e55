package goSession

import "context"

// requestMeta is the caller information the Engine copies into audit events
// and log lines. It is stored by value under a single context key.
type requestMeta struct {
	clientIP  string
	userAgent string
	requestID string
}

type requestMetaKey struct{}

func requestMetaFrom(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	meta, _ := ctx.Value(requestMetaKey{}).(requestMeta)
	return meta
}

func withRequestMeta(ctx context.Context, update func(*requestMeta)) context.Context {
	meta := requestMetaFrom(ctx)
	update(&meta)
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// WithClientIP attaches the caller's IP address to ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return withRequestMeta(ctx, func(m *requestMeta) { m.clientIP = ip })
}

// WithUserAgent attaches the HTTP User-Agent string to ctx.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return withRequestMeta(ctx, func(m *requestMeta) { m.userAgent = userAgent })
}

// WithRequestID attaches a request correlation id to ctx. It appears in audit
// events and engine log lines.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withRequestMeta(ctx, func(m *requestMeta) { m.requestID = requestID })
}

func requestIDFromContext(ctx context.Context) string {
	return requestMetaFrom(ctx).requestID
}
