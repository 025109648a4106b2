package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "audit_ip"
	ctxKeyUserAgent contextKey = "audit_ua"
)

// ContextWithRequestMeta attaches the caller's address and user agent so
// that audit entries written further down can record them.
func ContextWithRequestMeta(ctx context.Context, ip, ua string) context.Context {
	if ip != "" {
		ctx = context.WithValue(ctx, ctxKeyIPAddress, ip)
	}
	if ua != "" {
		ctx = context.WithValue(ctx, ctxKeyUserAgent, ua)
	}
	return ctx
}

// GetIPAddressFromContext returns the address set by ContextWithRequestMeta.
func GetIPAddressFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyIPAddress).(string)
	return v
}

// GetUserAgentFromContext returns the user agent set by ContextWithRequestMeta.
func GetUserAgentFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserAgent).(string)
	return v
}
